// Package xslices holds slice helpers that the slices package lacks.
package xslices

// Filter returns a new slice holding, in order, the elements of s for
// which keep returns true.
func Filter[S ~[]E, E any](s S, keep func(E) bool) S {
	var r S
	for _, v := range s {
		if keep(v) {
			r = append(r, v)
		}
	}
	return r
}
