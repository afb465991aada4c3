package util

import (
	"cmp"
	"maps"
	"slices"
)

/*
SortedKeys returns keys of the map in ascending order. Map iteration order
is random so anything which is hashed or rendered for the user must iterate
over the sorted keys.
*/
func SortedKeys[M ~map[K]V, K cmp.Ordered, V any](m M) []K {
	return slices.Sorted(maps.Keys(m))
}

/*
TransformSlice processes input slice s by calling the mapper callback for each
element and returning the slice of values returned by the callback.
*/
func TransformSlice[S ~[]E, E any, V any](s S, mapper func(E) V) []V {
	r := make([]V, len(s))
	for i, v := range s {
		r[i] = mapper(v)
	}
	return r
}
