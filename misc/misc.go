// Package misc provides small support utilities shared by the
// command-line tools: merge-style intersection of sorted slices and a
// byte-buffer compression wrapper.
package misc

import (
	"cmp"
)

// IntersectSorted returns the elements present in both slices. Both
// inputs must be sorted ascending without duplicates.
func IntersectSorted[T cmp.Ordered](a, b []T) []T {
	return IntersectSortedInto(nil, a, b)
}

// IntersectSortedInto appends the intersection of a and b to dst and
// returns the extended slice.
func IntersectSortedInto[T cmp.Ordered](dst, a, b []T) []T {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case b[j] < a[i]:
			j++
		default:
			dst = append(dst, a[i])
			i++
			j++
		}
	}
	return dst
}
