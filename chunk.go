package morph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/goccy/go-yaml/ast"
	"github.com/moby/patternmatcher"
	"github.com/pkg/errors"
)

// ChunkMorphology describes how to build a single chunk: its build system,
// the commands to run at each stage, and the sub-artifacts it splits into.
type ChunkMorphology struct {
	// Chunks maps an artifact name to the list of glob patterns (relative to
	// the chunk's install root) that belong to it, in declaration order. If
	// empty, the chunk produces exactly one artifact named after the
	// morphology itself.
	Chunks ChunkArtifacts

	BuildSystem string

	ConfigureCommands []string
	BuildCommands     []string
	TestCommands      []string
	InstallCommands   []string

	// MaxJobs caps the parallelism passed to the chunk's build system, e.g.
	// `make -jN`. Nil means "use the build system's default".
	MaxJobs *int
}

// ChunkArtifactEntry is one `chunks:` mapping entry: an artifact name and
// the glob patterns that belong to it.
type ChunkArtifactEntry struct {
	Name     string
	Patterns []string
}

// ChunkArtifacts is an ordered `chunks:` mapping. Go maps do not preserve
// insertion order, and the order artifacts are declared in is load-bearing
// for the resolver's output order, so this walks the YAML mapping node
// directly rather than decoding into a map.
type ChunkArtifacts []ChunkArtifactEntry

func (c *ChunkArtifacts) UnmarshalYAML(node ast.Node) error {
	mapping, ok := node.(*ast.MappingNode)
	if !ok {
		return fmt.Errorf("chunks: expected a mapping, got %s", node.Type())
	}

	entries := make(ChunkArtifacts, 0, len(mapping.Values))
	for _, v := range mapping.Values {
		name := v.Key.String()
		var patterns []string
		seq, ok := v.Value.(*ast.SequenceNode)
		if !ok {
			return fmt.Errorf("chunks.%s: expected a list of patterns, got %s", name, v.Value.Type())
		}
		for _, p := range seq.Values {
			patterns = append(patterns, p.String())
		}
		entries = append(entries, ChunkArtifactEntry{Name: name, Patterns: patterns})
	}
	*c = entries
	return nil
}

// UnmarshalJSON preserves declaration order from a JSON object by walking
// its tokens directly rather than decoding into a map.
func (c *ChunkArtifacts) UnmarshalJSON(dt []byte) error {
	dec := json.NewDecoder(bytes.NewReader(dt))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("chunks: expected a json object")
	}

	var entries ChunkArtifacts
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name := keyTok.(string)

		var patterns []string
		if err := dec.Decode(&patterns); err != nil {
			return fmt.Errorf("chunks.%s: %w", name, err)
		}
		entries = append(entries, ChunkArtifactEntry{Name: name, Patterns: patterns})
	}
	if _, err := dec.Token(); err != nil && err != io.EOF {
		return err
	}

	*c = entries
	return nil
}

// Names returns the artifact names in declaration order.
func (c ChunkArtifacts) Names() []string {
	names := make([]string, len(c))
	for i, e := range c {
		names[i] = e.Name
	}
	return names
}

// Get returns the patterns declared for name and whether it was present.
func (c ChunkArtifacts) Get(name string) ([]string, bool) {
	for _, e := range c {
		if e.Name == name {
			return e.Patterns, true
		}
	}
	return nil, false
}

// InvalidPatternError reports a chunk artifact glob pattern that
// patternmatcher rejects at parse time. No file matching is performed here;
// this only validates pattern syntax.
type InvalidPatternError struct {
	Artifact string
	Pattern  string
	Err      error
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("chunk artifact %q: invalid pattern %q: %v", e.Artifact, e.Pattern, e.Err)
}

func (e *InvalidPatternError) Unwrap() error { return e.Err }

func (c *ChunkMorphology) validate() error {
	var errs []error

	for _, entry := range c.Chunks {
		for _, pattern := range entry.Patterns {
			if _, err := patternmatcher.New([]string{pattern}); err != nil {
				errs = append(errs, &InvalidPatternError{Artifact: entry.Name, Pattern: pattern, Err: err})
			}
		}
	}
	if c.MaxJobs != nil && *c.MaxJobs < 1 {
		errs = append(errs, errors.Errorf("max-jobs must be >= 1, got %d", *c.MaxJobs))
	}

	return joinErrors(errs)
}

// ArtifactNames returns the names of the artifacts this chunk produces, in
// declaration order. If Chunks is empty, the chunk produces a single
// artifact named selfName (the owning morphology's name).
func (c *ChunkMorphology) ArtifactNames(selfName string) []string {
	if len(c.Chunks) == 0 {
		return []string{selfName}
	}
	return c.Chunks.Names()
}
