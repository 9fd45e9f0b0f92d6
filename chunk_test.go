package morph

import "testing"

func TestChunkValidateRejectsBadPattern(t *testing.T) {
	c := &ChunkMorphology{
		Chunks: ChunkArtifacts{
			{Name: "runtime", Patterns: []string{"usr/bin/["}},
		},
	}
	err := c.validate()
	if err == nil {
		t.Fatal("expected error for malformed glob pattern")
	}
}

func TestChunkValidateRejectsBadMaxJobs(t *testing.T) {
	zero := 0
	c := &ChunkMorphology{MaxJobs: &zero}
	if err := c.validate(); err == nil {
		t.Fatal("expected error for max-jobs < 1")
	}
}

func TestChunkArtifactNamesDefault(t *testing.T) {
	c := &ChunkMorphology{}
	if got := c.ArtifactNames("foo"); len(got) != 1 || got[0] != "foo" {
		t.Fatalf("ArtifactNames = %v, want [foo]", got)
	}
}
