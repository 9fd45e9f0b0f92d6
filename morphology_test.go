package morph

import (
	"errors"
	"testing"
)

func TestParseYAMLChunk(t *testing.T) {
	dt := []byte(`
name: hello
kind: chunk
build-system: autotools
configure-commands:
  - ./configure
build-commands:
  - make
install-commands:
  - make install
`)
	m, err := ParseYAML(dt)
	if err != nil {
		t.Fatalf("ParseYAML: %v", err)
	}
	if m.Kind != KindChunk {
		t.Fatalf("kind = %v, want chunk", m.Kind)
	}
	if m.Chunk.BuildSystem != "autotools" {
		t.Fatalf("build-system = %q", m.Chunk.BuildSystem)
	}
	if got := m.Chunk.ArtifactNames(m.Name); len(got) != 1 || got[0] != "hello" {
		t.Fatalf("ArtifactNames = %v, want [hello]", got)
	}
}

func TestParseYAMLChunkWithArtifacts(t *testing.T) {
	dt := []byte(`
name: hello
kind: chunk
chunks:
  hello-devel:
    - usr/include/*
  hello-runtime:
    - usr/bin/*
`)
	m, err := ParseYAML(dt)
	if err != nil {
		t.Fatalf("ParseYAML: %v", err)
	}
	got := m.Chunk.ArtifactNames(m.Name)
	want := []string{"hello-devel", "hello-runtime"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("ArtifactNames = %v, want %v (declaration order)", got, want)
	}
}

func TestParseYAMLMissingName(t *testing.T) {
	_, err := ParseYAML([]byte(`kind: chunk`))
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
}

func TestParseYAMLUnknownKind(t *testing.T) {
	_, err := ParseYAML([]byte(`name: x
kind: nonsense`))
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
}

func TestLookupChildSystem(t *testing.T) {
	m := &Morphology{
		Name:   "my-system",
		Kind:   KindSystem,
		System: &SystemMorphology{Strata: []string{"core", "extra"}},
	}
	if _, err := m.LookupChild("core"); err != nil {
		t.Fatalf("LookupChild(core): %v", err)
	}
	if _, err := m.LookupChild("missing"); err == nil {
		t.Fatal("expected ChildNotFound for missing stratum")
	}
}

func TestKeysOrder(t *testing.T) {
	m := &Morphology{Name: "x", Kind: KindSystem, System: &SystemMorphology{}}
	keys := m.Keys()
	if keys[0] != "name" || keys[1] != "kind" {
		t.Fatalf("Keys() = %v", keys)
	}
}
