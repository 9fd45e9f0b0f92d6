package morph

import "testing"

func chunkMorph(name string) *Morphology {
	return &Morphology{Name: name, Kind: KindChunk, Chunk: &ChunkMorphology{}}
}

func TestSourcePoolDedupesByKey(t *testing.T) {
	pool := NewSourcePool()
	a := pool.Add(&Source{Repo: "r", Filename: "f.morph", Morphology: chunkMorph("f")})
	b := pool.Add(&Source{Repo: "r", Filename: "f.morph", Morphology: chunkMorph("f-again")})

	if a != b {
		t.Fatal("expected Add to return the first-added Source for a duplicate key")
	}
	if pool.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", pool.Len())
	}
}

func TestSourcePoolPreservesInsertionOrder(t *testing.T) {
	pool := NewSourcePool()
	pool.Add(&Source{Repo: "r", Filename: "b.morph", Morphology: chunkMorph("b")})
	pool.Add(&Source{Repo: "r", Filename: "a.morph", Morphology: chunkMorph("a")})

	all := pool.All()
	if len(all) != 2 || all[0].Filename != "b.morph" || all[1].Filename != "a.morph" {
		t.Fatalf("All() = %+v, want insertion order [b.morph, a.morph]", all)
	}
}

func TestSourcePoolLookup(t *testing.T) {
	pool := NewSourcePool()
	src := &Source{Repo: "r", Filename: "f.morph", OriginalRef: "master", Morphology: chunkMorph("f")}
	pool.Add(src)

	got, ok := pool.Lookup(SourceKey{Repo: "r", Filename: "f.morph", OriginalRef: "master"})
	if !ok || got != src {
		t.Fatalf("Lookup did not find the added source")
	}
	if _, ok := pool.Lookup(SourceKey{Repo: "r", Filename: "missing.morph"}); ok {
		t.Fatal("Lookup found a source that was never added")
	}
}
