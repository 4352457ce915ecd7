// ABOUTME: Query-time filtering of a built queue for API and CLI views.
// ABOUTME: Filters never reorder items, so priority ordering is preserved.

package queue

import "github.com/jfeddern/PatchRelay/internal/types"

// Filter narrows a queue; zero values match everything
type Filter struct {
	ProjectID   string
	Type        types.ItemType
	Severity    types.Severity
	ExcludeHeld bool
	Limit       int
}

// Apply returns the items matching f, in queue order
func (f Filter) Apply(items []types.PatchQueueItem) []types.PatchQueueItem {
	out := []types.PatchQueueItem{}
	for _, item := range items {
		if f.ProjectID != "" && item.ProjectID != f.ProjectID {
			continue
		}
		if f.Type != "" && item.Type != f.Type {
			continue
		}
		if f.Severity != "" && item.Severity != f.Severity {
			continue
		}
		if f.ExcludeHeld && item.IsHeld {
			continue
		}
		out = append(out, item)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out
}
