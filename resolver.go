package morph

import (
	"fmt"

	"github.com/pmengelbert/stack"
	k8ssets "k8s.io/apimachinery/pkg/util/sets"
)

// UndefinedChunkArtifactError is returned when a stratum source requests a
// named artifact from a chunk morphology that doesn't declare an artifact by
// that name.
type UndefinedChunkArtifactError struct {
	Stratum   string
	ChunkName string
	Requested string
}

func (e *UndefinedChunkArtifactError) Error() string {
	return fmt.Sprintf("stratum %q: chunk %q has no artifact named %q", e.Stratum, e.ChunkName, e.Requested)
}

// DependencyOrderError is returned when a source names a sibling dependency
// that doesn't appear earlier in the same stratum's sources list - either
// because it's declared later, or not declared at all.
type DependencyOrderError struct {
	Stratum    string
	Source     string
	Dependency string
}

func (e *DependencyOrderError) Error() string {
	return fmt.Sprintf("stratum %q: source %q depends on %q, which does not appear earlier in sources", e.Stratum, e.Source, e.Dependency)
}

// MutualDependencyError is returned when the dependency graph contains a
// cycle. A and B are the two artifacts joined by the back-edge the cycle was
// detected on, not necessarily every artifact in the cycle.
type MutualDependencyError struct {
	A, B string
}

func (e *MutualDependencyError) Error() string {
	return fmt.Sprintf("mutual dependency between %q and %q", e.A, e.B)
}

// ResolveArtifacts runs the four-phase resolution algorithm over pool: it
// creates one or more artifacts per source, wires dependency edges from
// stratum source lists, stratum build-depends, and system strata lists,
// checks the result for cycles, and fills in every artifact's CacheKey using
// computer.
//
// The returned slice is ordered: each source's artifact(s) appear as a
// contiguous run, in the order the source was first added to pool. This is
// not a dependency-respecting topological order - a stratum's artifact can
// (and typically does) precede the chunk artifacts it depends on, because
// source position in the pool, not the dependency graph, decides output
// order.
func ResolveArtifacts(pool *SourcePool, computer CacheKeyComputer) (*Arena, []*Artifact, error) {
	arena := NewArena()

	// nameIndex is global: per spec, an artifact's name is unique across the
	// whole resolved graph.
	nameIndex := make(map[string]*Artifact)
	// primary holds the single artifact representing a stratum or system
	// source as a whole (as opposed to a chunk's possibly-multiple
	// sub-artifacts).
	primary := make(map[SourceKey]*Artifact)

	// Phase 1: allocate artifacts for every source, in pool order. This pass
	// alone fixes the final output order.
	for _, src := range pool.All() {
		switch src.Morphology.Kind {
		case KindChunk:
			names := src.Morphology.Chunk.ArtifactNames(src.Morphology.Name)
			src.Artifacts = names
			for _, name := range names {
				a := arena.New(name, src)
				nameIndex[name] = a
			}
		case KindStratum, KindSystem:
			a := arena.New(src.Morphology.Name, src)
			src.Artifacts = []string{src.Morphology.Name}
			nameIndex[src.Morphology.Name] = a
			primary[src.Key()] = a
		}
	}

	// Phase 2 & 3: wire dependency edges. Chunks contribute no edges of
	// their own; strata wire their sources list and build-depends; systems
	// wire their strata list.
	for _, src := range pool.All() {
		switch src.Morphology.Kind {
		case KindStratum:
			if err := wireStratum(pool, src, primary[src.Key()], nameIndex); err != nil {
				return nil, nil, err
			}
		case KindSystem:
			if err := wireSystem(src, primary[src.Key()], nameIndex); err != nil {
				return nil, nil, err
			}
		}
	}

	// Phase 4: cycle detection.
	if err := detectCycles(arena); err != nil {
		return nil, nil, err
	}

	if err := populateCacheKeys(arena, computer); err != nil {
		return nil, nil, err
	}

	return arena, arena.All(), nil
}

// populateCacheKeys fills in every artifact's CacheKey. All artifacts
// belonging to the same Source share one key (4.C), computed from that
// source's own content plus the sorted, deduplicated set of cache keys of
// everything any of its artifacts depends on. Recursion is memoized per
// source and safe from infinite loops because detectCycles has already run.
func populateCacheKeys(arena *Arena, computer CacheKeyComputer) error {
	bySource := make(map[SourceKey][]*Artifact)
	for _, a := range arena.All() {
		k := a.Source.Key()
		bySource[k] = append(bySource[k], a)
	}

	computed := make(map[SourceKey]string, len(bySource))
	var resolveSource func(src *Source) (string, error)
	resolveSource = func(src *Source) (string, error) {
		key := src.Key()
		if ck, ok := computed[key]; ok {
			return ck, nil
		}

		depKeySet := make(map[string]struct{})
		for _, a := range bySource[key] {
			for _, dep := range a.Dependencies() {
				depKey, err := resolveSource(dep.Source)
				if err != nil {
					return "", err
				}
				depKeySet[depKey] = struct{}{}
			}
		}

		ck, err := computer.ComputeKey(src, SortMapKeys(depKeySet))
		if err != nil {
			return "", err
		}
		computed[key] = ck
		return ck, nil
	}

	for _, a := range arena.All() {
		ck, err := resolveSource(a.Source)
		if err != nil {
			return err
		}
		a.CacheKey = ck
	}
	return nil
}

func wireStratum(pool *SourcePool, src *Source, stratumArtifact *Artifact, nameIndex map[string]*Artifact) error {
	stratum := src.Morphology.Stratum
	siblingArtifact := make(map[string]*Artifact, len(stratum.Sources))
	entryArtifacts := make([]*Artifact, len(stratum.Sources))

	for idx, entry := range stratum.Sources {
		key := SourceKey{Repo: entry.Repo, OriginalRef: entry.Ref, Filename: entry.Morph}
		resolved, ok := pool.Lookup(key)
		if !ok {
			return fmt.Errorf("stratum %q: source %q: morphology %q not found in source pool", src.Morphology.Name, entry.Name, entry.Morph)
		}

		var entryArtifact *Artifact
		if resolved.Morphology.Kind == KindChunk {
			valid := resolved.Morphology.Chunk.ArtifactNames(resolved.Morphology.Name)
			if !containsString(valid, entry.Name) {
				return &UndefinedChunkArtifactError{
					Stratum:   src.Morphology.Name,
					ChunkName: resolved.Morphology.Name,
					Requested: entry.Name,
				}
			}
			entryArtifact = nameIndex[entry.Name]
		} else {
			entryArtifact = nameIndex[resolved.Morphology.Name]
		}

		entryArtifacts[idx] = entryArtifact
	}

	// Cross-stratum build-depends is wired before this stratum's own
	// sources are linked up: every chunk artifact belonging to this
	// stratum sees the depended-on stratum's output in its build
	// environment, not just the stratum artifact as a whole.
	if stratum.BuildDepends != nil {
		if stratum.BuildDepends.Malformed {
			return &DependencyFormatError{Stratum: src.Morphology.Name}
		}
		for _, dep := range stratum.BuildDepends.Names {
			depArtifact, ok := nameIndex[dep]
			if !ok {
				return fmt.Errorf("stratum %q: build-depends %q not found", src.Morphology.Name, dep)
			}
			stratumArtifact.arena.AddDependency(stratumArtifact, depArtifact)
			for _, entryArtifact := range entryArtifacts {
				stratumArtifact.arena.AddDependency(entryArtifact, depArtifact)
			}
		}
	}

	for idx, entry := range stratum.Sources {
		entryArtifact := entryArtifacts[idx]
		stratumArtifact.arena.AddDependency(stratumArtifact, entryArtifact)

		var depNames []string
		if entry.BuildDepends != nil {
			if entry.BuildDepends.Malformed {
				return &DependencyFormatError{Stratum: src.Morphology.Name, Source: entry.Name}
			}
			depNames = entry.BuildDepends.Names
		} else {
			depNames = stratum.ImplicitDependencies(idx)
		}

		for _, dep := range depNames {
			if dep == entry.Name {
				continue // self-dependency, silently dropped
			}
			depArtifact, ok := siblingArtifact[dep]
			if !ok {
				return &DependencyOrderError{Stratum: src.Morphology.Name, Source: entry.Name, Dependency: dep}
			}
			stratumArtifact.arena.AddDependency(entryArtifact, depArtifact)
		}

		// Only entries already processed are visible as siblings, so a
		// build-depends on a later entry is a DependencyOrderError.
		siblingArtifact[entry.Name] = entryArtifact
	}

	return nil
}

func wireSystem(src *Source, sysArtifact *Artifact, nameIndex map[string]*Artifact) error {
	var prior []*Artifact
	for _, name := range src.Morphology.System.Strata {
		depArtifact, ok := nameIndex[name]
		if !ok {
			return fmt.Errorf("system %q: strata entry %q not found", src.Morphology.Name, name)
		}
		sysArtifact.arena.AddDependency(sysArtifact, depArtifact)
		for _, p := range prior {
			sysArtifact.arena.AddDependency(depArtifact, p)
		}
		prior = append(prior, depArtifact)
	}
	return nil
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// detectCycles walks the dependency graph depth-first using an explicit
// stack (rather than recursion, since artifact chains can be arbitrarily
// deep) and reports the first back-edge found - the first time a node still
// on the stack (grey) is reached again. This names the exact pair of
// artifacts forming the cycle, which a strongly-connected-components
// grouping would not.
//
// grey is the set of nodes currently on the DFS stack; black is the set of
// nodes fully explored. Anything in neither set is unvisited (white).
func detectCycles(arena *Arena) error {
	grey := k8ssets.New[ArtifactHandle]()
	black := k8ssets.New[ArtifactHandle]()

	type frame struct {
		artifact *Artifact
		next     int
	}

	for _, start := range arena.All() {
		if black.Has(start.handle) || grey.Has(start.handle) {
			continue
		}

		s := stack.New[frame]()
		s.Push(frame{artifact: start})
		grey.Insert(start.handle)

		for s.Len() > 0 {
			top := s.Peek()
			deps := top.artifact.Dependencies()

			if top.next >= len(deps) {
				grey.Delete(top.artifact.handle)
				black.Insert(top.artifact.handle)
				s.Pop()
				continue
			}

			next := deps[top.next]
			s.Pop()
			top.next++
			s.Push(top)

			switch {
			case grey.Has(next.handle):
				return &MutualDependencyError{A: top.artifact.Name, B: next.Name}
			case black.Has(next.handle):
				// already fully explored, no cycle through this edge
			default:
				grey.Insert(next.handle)
				s.Push(frame{artifact: next})
			}
		}
	}

	return nil
}
