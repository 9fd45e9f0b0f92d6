package morph

import (
	"encoding/json"
	"fmt"

	"github.com/goccy/go-yaml/ast"
	k8ssets "k8s.io/apimachinery/pkg/util/sets"
)

// BuildDepends is a stratum's or a stratum-source's `build-depends` value.
// Absent (the key missing from the document entirely) is represented as a
// nil *BuildDepends; present-and-empty is a non-nil BuildDepends with an
// empty Names. This distinction is significant and is why the field is a pointer:
// absent means "depends on every prior sibling declared so far" while an
// explicit empty list means "depends on nothing".
//
// A value present in the document but not a list of strings (a bare string,
// a mapping, ...) decodes successfully with Malformed set, rather than
// failing to parse: per the error taxonomy, that's a DependencyFormatError,
// which is the artifact resolver's to raise during its own validation pass,
// not the parser's.
type BuildDepends struct {
	Names     []string
	Malformed bool
}

// UnmarshalYAML implements ast-level decoding so a malformed value can be
// captured instead of aborting the whole document parse.
func (b *BuildDepends) UnmarshalYAML(node ast.Node) error {
	seq, ok := node.(*ast.SequenceNode)
	if !ok {
		b.Malformed = true
		return nil
	}
	names := make([]string, 0, len(seq.Values))
	for _, v := range seq.Values {
		names = append(names, v.String())
	}
	b.Names = names
	return nil
}

// UnmarshalJSON mirrors UnmarshalYAML's malformed-is-not-fatal behavior.
func (b *BuildDepends) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		b.Malformed = true
		return nil
	}
	b.Names = names
	return nil
}

// SourceEntry is one entry in a stratum's `sources:` list: a reference to a
// chunk (or nested stratum) morphology, plus an optional explicit ordering
// constraint against its siblings.
type SourceEntry struct {
	// Name is the name siblings refer to this entry by in build-depends and,
	// for a chunk, the chunk artifact the entry requests: the chunk
	// morphology's own name when it declares no `chunks:` mapping, otherwise
	// one of that mapping's keys.
	Name string `yaml:"name" json:"name" jsonschema:"required"`
	// Morph is the name of the chunk (or nested stratum) morphology to load.
	Morph string `yaml:"morph" json:"morph" jsonschema:"required"`
	Repo  string `yaml:"repo" json:"repo"`
	Ref   string `yaml:"ref" json:"ref"`

	BuildDepends *BuildDepends `yaml:"build-depends,omitempty" json:"build-depends,omitempty"`
}

// StratumMorphology describes a stratum: an ordered list of chunk sources to
// build, plus the strata this stratum itself must be built after.
type StratumMorphology struct {
	// BuildDepends lists the strata this stratum must be built after. Unlike
	// SourceEntry.BuildDepends, absent and empty mean the same thing here: no
	// stratum dependencies.
	BuildDepends *BuildDepends
	Sources      []SourceEntry
}

// DependencyFormatError is returned when a build-depends value is present
// but not a list of strings (e.g. a bare string or a mapping).
type DependencyFormatError struct {
	Stratum string
	Source  string // empty when the error is on the stratum's own build-depends
}

func (e *DependencyFormatError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("stratum %q: build-depends must be a list of strings", e.Stratum)
	}
	return fmt.Sprintf("stratum %q: source %q: build-depends must be a list of strings", e.Stratum, e.Source)
}

func (s *StratumMorphology) validate() error {
	var errs []error

	seen := k8ssets.New[string]()
	for _, src := range s.Sources {
		if src.Name == "" {
			errs = append(errs, fmt.Errorf("source with morph %q is missing a name", src.Morph))
			continue
		}
		if seen.Has(src.Name) {
			errs = append(errs, fmt.Errorf("duplicate source name %q", src.Name))
		}
		seen.Insert(src.Name)
	}

	return joinErrors(errs)
}

// ImplicitDependencies returns the names of source entries preceding idx in
// s.Sources, in declaration order - the implicit dependency set used when a
// source's BuildDepends field is absent.
func (s *StratumMorphology) ImplicitDependencies(idx int) []string {
	names := make([]string, 0, idx)
	for i := 0; i < idx; i++ {
		names = append(names, s.Sources[i].Name)
	}
	return names
}
