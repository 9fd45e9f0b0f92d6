package morph

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pkg/errors"
)

// LoadMorphologyFile reads and parses a single morphology document from
// path, dispatching on its extension (.json decodes as JSON, anything else
// as YAML - morphologies conventionally use ".morph").
func LoadMorphologyFile(path string) (*Morphology, error) {
	dt, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read morphology %s", path)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ParseJSON(dt)
	}
	return ParseYAML(dt)
}

// LoadMorphologyPool reads every morphology file under dir (matching the
// glob *.morph) and adds each of their sources to a new SourcePool, keyed by
// the file's path relative to dir as SourceKey.Filename.
//
// This is a convenience loader for cmd/tsort and tests; production callers
// that fetch morphologies from real repositories build their own SourcePool
// directly from whatever repo/ref metadata they have, since repository
// fetching itself is out of scope for this package.
func LoadMorphologyPool(dir string) (*SourcePool, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.morph"))
	if err != nil {
		return nil, errors.Wrapf(err, "glob %s", dir)
	}

	pool := NewSourcePool()
	for _, path := range matches {
		m, err := LoadMorphologyFile(path)
		if err != nil {
			return nil, err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = path
		}
		pool.Add(&Source{
			Repo:        dir,
			Filename:    rel,
			OriginalRef: "",
			Morphology:  m,
		})
	}
	return pool, nil
}

// LoadPartitionDocument parses a PartitionDocument from YAML or JSON text.
func LoadPartitionDocument(dt []byte, jsonFormat bool) (*PartitionDocument, error) {
	var doc PartitionDocument
	var err error
	if jsonFormat {
		err = json.Unmarshal(dt, &doc)
	} else {
		err = yaml.Unmarshal(dt, &doc)
	}
	if err != nil {
		return nil, errors.Wrap(err, "unmarshal partition document")
	}
	return &doc, nil
}
