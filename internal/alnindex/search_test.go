package alnindex

import (
	"testing"

	"github.com/grailbio/testutil/expect"
)

func identityKey(keys []int) func(int) Pos {
	return func(i int) Pos { return keys[i] }
}

func TestSearchFindsFirstGE(t *testing.T) {
	keys := []int{5, 7, 7, 20, 25}
	perm := []int{0, 1, 2, 3, 4}
	key := identityKey(keys)

	expect.EQ(t, int(Search(perm, key, 0)), 0)
	expect.EQ(t, int(Search(perm, key, 6)), 1)
	expect.EQ(t, int(Search(perm, key, 7)), 1)
	expect.EQ(t, int(Search(perm, key, 21)), 4)
	expect.EQ(t, int(Search(perm, key, 100)), 5)
}

func TestExponentialMatchesSearch(t *testing.T) {
	keys := []int{1, 3, 4, 4, 9, 12, 12, 30, 31, 50}
	perm := make([]int, len(keys))
	for i := range perm {
		perm[i] = i
	}
	key := identityKey(keys)

	idx := Index(0)
	for _, target := range []int{0, 2, 4, 10, 13, 31, 60} {
		want := Search(perm, key, target)
		got := Exponential(perm, key, target, idx)
		expect.EQ(t, int(got), int(want))
		idx = got
	}
}

func TestRangeReturnsHalfOpenSubslice(t *testing.T) {
	keys := []int{1, 5, 5, 10, 15}
	perm := []int{0, 1, 2, 3, 4}
	key := identityKey(keys)

	got := Range(perm, key, 5, 10)
	expect.EQ(t, got, []int{1, 2})
}

func TestRangeEmptyWhenNothingMatches(t *testing.T) {
	keys := []int{1, 2, 3}
	perm := []int{0, 1, 2}
	key := identityKey(keys)

	got := Range(perm, key, 100, 200)
	expect.EQ(t, len(got), 0)
}
