package morph

// SourcePool is an ordered, deduplicated collection of Source values. Adding
// the same (Repo, OriginalRef, Filename) twice is a no-op on the second
// call: the pool keeps the first-added Source and its position. Iteration
// order is insertion order, which the artifact resolver depends on: a
// source's artifacts appear in the resolver's output grouped together, in
// the position the source was first added to the pool.
type SourcePool struct {
	order []SourceKey
	byKey map[SourceKey]*Source
}

// NewSourcePool returns an empty pool.
func NewSourcePool() *SourcePool {
	return &SourcePool{byKey: make(map[SourceKey]*Source)}
}

// Add inserts src into the pool if its key isn't already present, and
// returns the pool's canonical Source for that key (either src itself, or
// whichever Source was first added under that key).
func (p *SourcePool) Add(src *Source) *Source {
	key := src.Key()
	if existing, ok := p.byKey[key]; ok {
		return existing
	}
	p.byKey[key] = src
	p.order = append(p.order, key)
	return src
}

// Lookup returns the pool's Source for key, if present.
func (p *SourcePool) Lookup(key SourceKey) (*Source, bool) {
	s, ok := p.byKey[key]
	return s, ok
}

// Len returns the number of distinct sources in the pool.
func (p *SourcePool) Len() int {
	return len(p.order)
}

// All returns the pool's sources in insertion order.
func (p *SourcePool) All() []*Source {
	out := make([]*Source, len(p.order))
	for i, k := range p.order {
		out[i] = p.byKey[k]
	}
	return out
}
