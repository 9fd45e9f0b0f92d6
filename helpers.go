package morph

import (
	"cmp"
	"slices"
)

// SortMapKeys is a convenience generic function to sort the keys of a
// map[K]V. The resolver's populateCacheKeys uses this to turn a deduplicated set of
// dependency keys (naturally a map, since membership is all that matters
// while gathering them) into the sorted order its hash must be insensitive
// to discovery order against.
func SortMapKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
