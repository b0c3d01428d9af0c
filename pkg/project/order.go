package project

import (
	"cmp"
	"slices"
)

// SortByPosition orders projects by Position ascending, then CreatedAt
// ascending, then ID so the order is total.
func SortByPosition(projects []*Project) {
	slices.SortStableFunc(projects, func(a, b *Project) int {
		if c := cmp.Compare(a.Position, b.Position); c != 0 {
			return c
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
