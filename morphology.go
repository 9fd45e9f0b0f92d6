// Package morph implements the core build-graph engine of a source-to-system
// build tool: parsing morphologies (chunk/stratum/system build descriptions),
// pooling their sources, computing cache keys, resolving the artifact
// dependency graph, and planning disk partition layouts. See SPEC_FULL.md.
package morph

import (
	"encoding/json"
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/pkg/errors"
)

// Kind identifies which of the three morphology shapes a document describes.
type Kind string

const (
	KindChunk   Kind = "chunk"
	KindStratum Kind = "stratum"
	KindSystem  Kind = "system"
)

func (k Kind) valid() bool {
	switch k {
	case KindChunk, KindStratum, KindSystem:
		return true
	default:
		return false
	}
}

// Morphology is a parsed build description: a chunk, a stratum, or a system.
// Only the field matching Kind is populated; the others are nil.
//
// A Morphology is immutable once returned by ParseYAML/ParseJSON.
type Morphology struct {
	Name        string `yaml:"name" json:"name" jsonschema:"required"`
	Kind        Kind   `yaml:"kind" json:"kind" jsonschema:"required,enum=chunk,enum=stratum,enum=system"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	Chunk   *ChunkMorphology   `yaml:"-" json:"-"`
	Stratum *StratumMorphology `yaml:"-" json:"-"`
	System  *SystemMorphology  `yaml:"-" json:"-"`
}

// ParseError is returned by ParseYAML/ParseJSON when the input document is
// structurally invalid: missing required fields, an unrecognized kind, or
// malformed kind-specific content.
type ParseError struct {
	// Name is the morphology's declared name, if it was readable.
	Name string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("parse morphology: %v", e.Err)
	}
	return fmt.Sprintf("parse morphology %q: %v", e.Name, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// rawMorphology mirrors the on-disk shape of a morphology document before
// its kind-specific fields are split out into Chunk/Stratum/System.
type rawMorphology struct {
	Name        string `yaml:"name" json:"name"`
	Kind        Kind   `yaml:"kind" json:"kind"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// chunk fields
	Chunks            ChunkArtifacts `yaml:"chunks,omitempty" json:"chunks,omitempty"`
	BuildSystem       string         `yaml:"build-system,omitempty" json:"build-system,omitempty"`
	ConfigureCommands []string       `yaml:"configure-commands" json:"configure-commands"`
	BuildCommands     []string       `yaml:"build-commands" json:"build-commands"`
	TestCommands      []string       `yaml:"test-commands" json:"test-commands"`
	InstallCommands   []string       `yaml:"install-commands" json:"install-commands"`
	MaxJobs           *int           `yaml:"max-jobs,omitempty" json:"max-jobs,omitempty"`

	// stratum fields
	BuildDepends *BuildDepends `yaml:"build-depends,omitempty" json:"build-depends,omitempty"`
	Sources      []SourceEntry `yaml:"sources,omitempty" json:"sources,omitempty"`

	// system fields
	Strata []string `yaml:"strata,omitempty" json:"strata,omitempty"`
	Arch   string   `yaml:"arch,omitempty" json:"arch,omitempty"`
}

// ParseYAML parses a morphology from YAML text.
func ParseYAML(dt []byte) (*Morphology, error) {
	var raw rawMorphology
	if err := yaml.Unmarshal(dt, &raw); err != nil {
		return nil, &ParseError{Err: errors.Wrap(err, "unmarshal yaml")}
	}
	return fromRaw(raw)
}

// ParseJSON parses a morphology from JSON text.
func ParseJSON(dt []byte) (*Morphology, error) {
	var raw rawMorphology
	if err := json.Unmarshal(dt, &raw); err != nil {
		return nil, &ParseError{Err: errors.Wrap(err, "unmarshal json")}
	}
	return fromRaw(raw)
}

func fromRaw(raw rawMorphology) (*Morphology, error) {
	if raw.Name == "" {
		return nil, &ParseError{Err: errors.New(`missing required field "name"`)}
	}
	if !raw.Kind.valid() {
		return nil, &ParseError{Name: raw.Name, Err: fmt.Errorf("unknown kind %q", raw.Kind)}
	}

	m := &Morphology{
		Name:        raw.Name,
		Kind:        raw.Kind,
		Description: raw.Description,
	}

	switch raw.Kind {
	case KindChunk:
		c := &ChunkMorphology{
			Chunks:            raw.Chunks,
			BuildSystem:       raw.BuildSystem,
			ConfigureCommands: raw.ConfigureCommands,
			BuildCommands:     raw.BuildCommands,
			TestCommands:      raw.TestCommands,
			InstallCommands:   raw.InstallCommands,
			MaxJobs:           raw.MaxJobs,
		}
		if err := c.validate(); err != nil {
			return nil, &ParseError{Name: raw.Name, Err: err}
		}
		m.Chunk = c
	case KindStratum:
		s := &StratumMorphology{
			BuildDepends: raw.BuildDepends,
			Sources:      raw.Sources,
		}
		if err := s.validate(); err != nil {
			return nil, &ParseError{Name: raw.Name, Err: err}
		}
		m.Stratum = s
	case KindSystem:
		m.System = &SystemMorphology{
			Strata: raw.Strata,
			Arch:   raw.Arch,
		}
	}

	return m, nil
}

// ChildNotFound is returned by LookupChild when the requested name is not
// present among a system's strata or a stratum's sources.
type ChildNotFound struct {
	Parent string
	Child  string
}

func (e *ChildNotFound) Error() string {
	return fmt.Sprintf("morphology %q has no child %q", e.Parent, e.Child)
}

// LookupChild searches a system's strata list or a stratum's sources list
// (in declaration order) for an entry named name. Chunk morphologies have no
// children and always return ChildNotFound.
func (m *Morphology) LookupChild(name string) (any, error) {
	switch m.Kind {
	case KindSystem:
		for _, s := range m.System.Strata {
			if s == name {
				return s, nil
			}
		}
	case KindStratum:
		for _, s := range m.Stratum.Sources {
			if s.Name == name {
				return s, nil
			}
		}
	}
	return nil, &ChildNotFound{Parent: m.Name, Child: name}
}

// Keys returns the populated top-level fields, in declaration order. Writers
// that serialize morphologies use this to decide what to emit.
func (m *Morphology) Keys() []string {
	keys := []string{"name", "kind"}
	if m.Description != "" {
		keys = append(keys, "description")
	}

	switch m.Kind {
	case KindChunk:
		if len(m.Chunk.Chunks) > 0 {
			keys = append(keys, "chunks")
		}
		if m.Chunk.BuildSystem != "" {
			keys = append(keys, "build-system")
		}
		if m.Chunk.ConfigureCommands != nil {
			keys = append(keys, "configure-commands")
		}
		if m.Chunk.BuildCommands != nil {
			keys = append(keys, "build-commands")
		}
		if m.Chunk.TestCommands != nil {
			keys = append(keys, "test-commands")
		}
		if m.Chunk.InstallCommands != nil {
			keys = append(keys, "install-commands")
		}
		if m.Chunk.MaxJobs != nil {
			keys = append(keys, "max-jobs")
		}
	case KindStratum:
		if m.Stratum.BuildDepends != nil {
			keys = append(keys, "build-depends")
		}
		if len(m.Stratum.Sources) > 0 {
			keys = append(keys, "sources")
		}
	case KindSystem:
		if len(m.System.Strata) > 0 {
			keys = append(keys, "strata")
		}
		if m.System.Arch != "" {
			keys = append(keys, "arch")
		}
	}

	return keys
}
