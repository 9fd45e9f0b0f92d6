package morph

import (
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// CacheKeyComputer computes a deterministic fingerprint for a Source, given
// the already-computed cache keys of its dependencies. Swapping in a fake
// implementation (see stubCacheKeyComputer in resolver_test.go) is how tests
// pin expected resolver output without depending on a real hash.
type CacheKeyComputer interface {
	ComputeKey(src *Source, dependencyKeys []string) (string, error)
}

// DefaultCacheKeyComputer hashes a source's resolved commit, its
// morphology's canonical content, and its dependencies' cache keys. The
// dependency keys are sorted before hashing, so the result does not depend
// on the order dependencies happen to be discovered in - only on the set of
// dependencies and their own keys.
type DefaultCacheKeyComputer struct{}

// ComputeKey implements CacheKeyComputer.
func (DefaultCacheKeyComputer) ComputeKey(src *Source, dependencyKeys []string) (string, error) {
	canon, err := canonicalMorphology(src.Morphology)
	if err != nil {
		return "", fmt.Errorf("compute cache key for %s: %w", src.Key(), err)
	}

	sorted := append([]string(nil), dependencyKeys...)
	sort.Strings(sorted)

	h := sha512.New()
	fmt.Fprintf(h, "sha1:%s\n", src.SHA1)
	fmt.Fprintf(h, "prefix:%s\n", src.Prefix)
	h.Write(canon)
	h.Write([]byte{'\n'})
	for _, k := range sorted {
		fmt.Fprintf(h, "dep:%s\n", k)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// canonicalMorphology renders a morphology's content in a stable form: the
// Keys() list, the name, the kind and the whole kind-specific struct (the
// description is not included), marshaled through encoding/json
// (whose map key ordering for our field set is fixed by struct field order,
// not map iteration, since Morphology/ChunkMorphology/StratumMorphology/
// SystemMorphology hold no plain maps after parsing).
func canonicalMorphology(m *Morphology) ([]byte, error) {
	type canonical struct {
		Keys    []string           `json:"keys"`
		Name    string             `json:"name"`
		Kind    Kind               `json:"kind"`
		Chunk   *ChunkMorphology   `json:"chunk,omitempty"`
		Stratum *StratumMorphology `json:"stratum,omitempty"`
		System  *SystemMorphology  `json:"system,omitempty"`
	}
	dt, err := json.Marshal(canonical{
		Keys:    m.Keys(),
		Name:    m.Name,
		Kind:    m.Kind,
		Chunk:   m.Chunk,
		Stratum: m.Stratum,
		System:  m.System,
	})
	if err != nil {
		return nil, err
	}
	return dt, nil
}
