// ABOUTME: Summarizes applied dependency updates into a conventional commit message.
// ABOUTME: Consumes history entries newest first and ignores failed updates.

package commitmsg

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jfeddern/PatchRelay/internal/types"
)

var groupOrder = []types.UpdateType{types.UpdateMajor, types.UpdateMinor, types.UpdatePatch}

// Summarize builds a commit message from history entries given newest first.
// A package updated more than once is reported by its newest entry.
func Summarize(entries []types.PatchHistoryEntry) string {
	seen := make(map[string]bool)
	var applied []types.PatchHistoryEntry
	for _, e := range entries {
		if !e.Success || seen[e.Package] {
			continue
		}
		seen[e.Package] = true
		applied = append(applied, e)
	}

	switch len(applied) {
	case 0:
		return ""
	case 1:
		e := applied[0]
		return fmt.Sprintf("chore(deps): bump %s from %s to %s", e.Package, e.FromVersion, e.ToVersion)
	}

	groups := make(map[types.UpdateType][]types.PatchHistoryEntry)
	for _, e := range applied {
		kind := e.UpdateType
		if kind != types.UpdateMajor && kind != types.UpdateMinor {
			kind = types.UpdatePatch
		}
		groups[kind] = append(groups[kind], e)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "chore(deps): update %d packages\n", len(applied))
	for _, kind := range groupOrder {
		group := groups[kind]
		sort.Slice(group, func(i, j int) bool { return group[i].Package < group[j].Package })
		for _, e := range group {
			fmt.Fprintf(&b, "\n- %s: %s → %s (%s)", e.Package, e.FromVersion, e.ToVersion, kind)
		}
	}
	return b.String()
}
