package syncer

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Result contains statistics from a full re-sync.
type Result struct {
	Total   int
	Synced  int
	Removed int
	Failed  int

	// Errors maps project slugs to the error that stopped their sync.
	Errors map[string]error
}

// Summary returns a human-readable summary of the re-sync.
func (r *Result) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sync complete: %d projects, %d indexed, %d removed (private), %d failed",
		r.Total, r.Synced, r.Removed, r.Failed)
	for _, slug := range slices.Sorted(maps.Keys(r.Errors)) {
		fmt.Fprintf(&b, "\n  %s: %v", slug, r.Errors[slug])
	}
	return b.String()
}
