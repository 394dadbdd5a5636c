// Package alnindex provides binary/exponential search helpers over a
// permutation index: a []int of record indices sorted by some int key
// (qstart, qend, ...), as used by package batch to narrow the set of paste
// candidates it has to examine for a given seed without a linear scan.
//
// Adapted from the endpoint-search helpers used elsewhere in this module's
// ancestry for interval-union scanning; here the "endpoints" are the sorted
// keys of a permutation rather than interval boundaries.
package alnindex

import "sort"

// Pos is the coordinate type permutation keys are compared on. Query and
// subject coordinates fit comfortably in an int32, but we keep this as a
// plain int so callers never have to convert.
type Pos = int

// Index is the result of a search over a permutation: a position into the
// permutation slice, pointing at the first entry whose key is >= the
// search target (or len(perm) if none is).
type Index int

// Search returns the position in perm (sorted ascending by key(perm[i]))
// of the first entry whose key is >= x, or len(perm) if there is none.
// Equivalent to sort.Search but phrased for a permutation + key function so
// callers never need to materialize a parallel []int of keys.
func Search(perm []int, key func(recordIdx int) Pos, x Pos) Index {
	return Index(sort.Search(len(perm), func(i int) bool { return key(perm[i]) >= x }))
}

// Exponential performs exponential search (doubling step, then binary
// search) starting from idx, which must satisfy idx <= Search(perm, key, x)
// for the new target x. It is cheaper than Search when x only advances a
// little between successive calls, which is the common case while the
// batch controller walks a seed's growing span across a permutation.
func Exponential(perm []int, key func(recordIdx int) Pos, x Pos, idx Index) Index {
	nextIncr := Index(1)
	startIdx := idx
	endIdx := Index(len(perm))
	for idx < endIdx {
		if key(perm[idx]) >= x {
			endIdx = idx
			break
		}
		startIdx = idx + 1
		idx += nextIncr
		nextIncr *= 2
	}
	for startIdx < endIdx {
		midIdx := Index(uint(startIdx)+uint(endIdx)) >> 1
		if key(perm[midIdx]) >= x {
			endIdx = midIdx
		} else {
			startIdx = midIdx + 1
		}
	}
	return startIdx
}

// Range returns the slice of record indices in perm whose key lies in
// [lo, hi), using Search for both ends.
func Range(perm []int, key func(recordIdx int) Pos, lo, hi Pos) []int {
	begin := Search(perm, key, lo)
	end := Search(perm, key, hi)
	if end < begin {
		end = begin
	}
	return perm[begin:end]
}
