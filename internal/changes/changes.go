// Package changes computes the edit between two ordered ID sequences so a positional destination
// (a spreadsheet, a CSV file) can be patched with row deletes and appends instead of being rewritten.
package changes

import "sort"

// HeaderRows is the number of header rows above the first data row in a tabular destination.
const HeaderRows = 1

// ChangeSet is the difference between the remote collection and what was last written.
type ChangeSet struct {
	Added            []string // In current order
	Removed          []string // In stored order
	RemovedPositions []int    // 1-based destination rows of Removed, header included
	// RequiresFullRewrite is set when the IDs present on both sides appear in a different relative order.
	RequiresFullRewrite bool
}

// HasChanges reports whether the destination needs any write.
func (c ChangeSet) HasChanges() bool {
	return len(c.Added) > 0 || len(c.Removed) > 0 || c.RequiresFullRewrite
}

// DeletionOrder returns RemovedPositions from the bottom up, so deleting rows one at a time
// never shifts a row that is still to be deleted.
func (c ChangeSet) DeletionOrder() []int {
	out := append([]int(nil), c.RemovedPositions...)
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

// Detect compares current (the remote collection now) with stored (what the destination holds).
//
// A pure reordering cannot be expressed as inserts and deletes against row positions, so any change in the
// relative order of shared IDs requires a full rewrite, even when IDs were also added.
func Detect(current, stored []string) ChangeSet {
	inCurrent := make(map[string]struct{}, len(current))
	for _, id := range current {
		inCurrent[id] = struct{}{}
	}
	inStored := make(map[string]struct{}, len(stored))
	for _, id := range stored {
		inStored[id] = struct{}{}
	}

	var cs ChangeSet
	for _, id := range current {
		if _, ok := inStored[id]; !ok {
			cs.Added = append(cs.Added, id)
		}
	}
	for i, id := range stored {
		if _, ok := inCurrent[id]; !ok {
			cs.Removed = append(cs.Removed, id)
			cs.RemovedPositions = append(cs.RemovedPositions, i+1+HeaderRows)
		}
	}

	cs.RequiresFullRewrite = !sameOrder(common(current, inStored), common(stored, inCurrent))
	return cs
}

func common(ids []string, other map[string]struct{}) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := other[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

func sameOrder(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
