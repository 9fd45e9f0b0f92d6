package morph

// ArtifactHandle is a stable integer identifier for an Artifact within an
// Arena. Handles stay valid for the Arena's lifetime even as more artifacts
// are appended, so dependency/dependent edges can be stored as handles
// instead of pointers without invalidation on append.
type ArtifactHandle int

// Artifact is a single node in the resolved build graph: one buildable unit
// produced by a Source, identified by name, carrying its cache key and its
// edges to other artifacts.
type Artifact struct {
	handle ArtifactHandle
	arena  *Arena

	// Name is the artifact's name, unique within the resolved graph: either
	// the source's owning morphology name (for a source with no explicit
	// sub-artifacts), or one of its declared chunk artifact names.
	Name string
	// Source is the source this artifact was produced from.
	Source *Source
	// CacheKey is this artifact's computed fingerprint, filled in once a
	// CacheKeyComputer has run. Empty until then.
	CacheKey string

	dependencies []ArtifactHandle
	dependents   []ArtifactHandle
}

// Handle returns a's stable handle within its Arena.
func (a *Artifact) Handle() ArtifactHandle { return a.handle }

// Dependencies returns the artifacts a depends on, in the order the edges
// were added.
func (a *Artifact) Dependencies() []*Artifact {
	return a.arena.resolve(a.dependencies)
}

// Dependents returns the artifacts that depend on a, in the order the edges
// were added.
func (a *Artifact) Dependents() []*Artifact {
	return a.arena.resolve(a.dependents)
}

// Arena owns a set of Artifacts and their edges. Artifacts are always
// accessed through the Arena that created them.
type Arena struct {
	artifacts []*Artifact
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// New allocates a fresh Artifact in the arena and returns it.
func (r *Arena) New(name string, src *Source) *Artifact {
	a := &Artifact{
		handle: ArtifactHandle(len(r.artifacts)),
		arena:  r,
		Name:   name,
		Source: src,
	}
	r.artifacts = append(r.artifacts, a)
	return a
}

// Get returns the artifact for handle h.
func (r *Arena) Get(h ArtifactHandle) *Artifact {
	return r.artifacts[h]
}

// Len returns the number of artifacts allocated in the arena.
func (r *Arena) Len() int {
	return len(r.artifacts)
}

// All returns every artifact in the arena, in allocation order.
func (r *Arena) All() []*Artifact {
	out := make([]*Artifact, len(r.artifacts))
	copy(out, r.artifacts)
	return out
}

// AddDependency records that dependent depends on dependency, and that
// dependency is in turn depended on by dependent. The edge is a no-op if it
// already exists.
func (r *Arena) AddDependency(dependent, dependency *Artifact) {
	for _, h := range dependent.dependencies {
		if h == dependency.handle {
			return
		}
	}
	dependent.dependencies = append(dependent.dependencies, dependency.handle)
	dependency.dependents = append(dependency.dependents, dependent.handle)
}

func (r *Arena) resolve(handles []ArtifactHandle) []*Artifact {
	out := make([]*Artifact, len(handles))
	for i, h := range handles {
		out[i] = r.artifacts[h]
	}
	return out
}
