package ranges

import (
	"cmp"
	"slices"
)

// Index is an append-then-sort collection of intervals. The zero value is an
// empty, sorted index. Appends leave the index unsorted; Sort must run before
// Find.
//
// Sorting is stable on Start, so intervals sharing a start address keep the
// order they were appended in. Find binary searches for the last interval
// starting at or below the address and walks back from there, pruned by the
// running maximum of End, until an interval contains the address. Overlapping
// input never hides a containing interval: with nested ranges the innermost
// one wins, and among equal starts the one appended last wins.
type Index struct {
	items []Interval
	// maxEnd[i] is the largest End among items[:i+1]
	maxEnd []uint64
	dirty  bool
}

func (ix *Index) Append(iv Interval) {
	ix.items = append(ix.items, iv)
	ix.dirty = true
}

func (ix *Index) Sort() {
	if !ix.dirty {
		return
	}
	slices.SortStableFunc(ix.items, func(a, b Interval) int {
		return cmp.Compare(a.Start, b.Start)
	})
	ix.maxEnd = ix.maxEnd[:0]
	var running uint64
	for _, iv := range ix.items {
		running = max(running, iv.End)
		ix.maxEnd = append(ix.maxEnd, running)
	}
	ix.dirty = false
}

// Sorted reports whether the index is ready for Find.
func (ix *Index) Sorted() bool {
	return !ix.dirty
}

// Find returns the interval containing addr. It panics if intervals were
// appended since the last Sort.
func (ix *Index) Find(addr uint64) (Interval, bool) {
	if ix.dirty {
		panic("ranges: Find called on an unsorted Index")
	}
	// i is the number of intervals starting at or below addr
	i, _ := slices.BinarySearchFunc(ix.items, addr, func(candidate Interval, a uint64) int {
		if candidate.Start <= a {
			return -1
		}
		return 1
	})
	query := Interval{Start: addr}
	for j := i - 1; j >= 0 && ix.maxEnd[j] > addr; j-- {
		if Compare(query, ix.items[j]) == 0 {
			return ix.items[j], true
		}
	}
	return Interval{}, false
}

func (ix *Index) Len() int {
	return len(ix.items)
}

// All returns a copy of the intervals in their current order.
func (ix *Index) All() []Interval {
	return slices.Clone(ix.items)
}

func (ix *Index) Reset() {
	ix.items = nil
	ix.maxEnd = nil
	ix.dirty = false
}
