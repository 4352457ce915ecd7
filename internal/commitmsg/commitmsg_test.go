// ABOUTME: Tests for the commit-message summarizer.

package commitmsg

import (
	"testing"

	"github.com/jfeddern/PatchRelay/internal/types"
	"github.com/stretchr/testify/assert"
)

func entry(pkg, from, to string, kind types.UpdateType, success bool) types.PatchHistoryEntry {
	return types.PatchHistoryEntry{
		ProjectID:   "app",
		Package:     pkg,
		FromVersion: from,
		ToVersion:   to,
		UpdateType:  kind,
		Trigger:     types.TriggerManual,
		Success:     success,
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name     string
		entries  []types.PatchHistoryEntry
		expected string
	}{
		{
			name:     "empty",
			entries:  nil,
			expected: "",
		},
		{
			name:     "only failures",
			entries:  []types.PatchHistoryEntry{entry("lodash", "4.17.20", "4.17.21", types.UpdatePatch, false)},
			expected: "",
		},
		{
			name:     "single package",
			entries:  []types.PatchHistoryEntry{entry("lodash", "4.17.20", "4.17.21", types.UpdatePatch, true)},
			expected: "chore(deps): bump lodash from 4.17.20 to 4.17.21",
		},
		{
			name: "grouped by magnitude then name",
			entries: []types.PatchHistoryEntry{
				entry("zod", "3.22.0", "3.22.4", types.UpdatePatch, true),
				entry("react", "17.0.2", "18.3.1", types.UpdateMajor, true),
				entry("axios", "1.6.0", "1.7.4", types.UpdateMinor, true),
				entry("broken", "1.0.0", "2.0.0", types.UpdateMajor, false),
				entry("chalk", "5.3.0", "5.3.1", types.UpdatePatch, true),
			},
			expected: "chore(deps): update 4 packages\n" +
				"\n- react: 17.0.2 → 18.3.1 (major)" +
				"\n- axios: 1.6.0 → 1.7.4 (minor)" +
				"\n- chalk: 5.3.0 → 5.3.1 (patch)" +
				"\n- zod: 3.22.0 → 3.22.4 (patch)",
		},
		{
			name: "newest entry per package wins",
			entries: []types.PatchHistoryEntry{
				entry("lodash", "4.17.20", "4.17.21", types.UpdatePatch, true),
				entry("lodash", "4.17.19", "4.17.20", types.UpdatePatch, true),
			},
			expected: "chore(deps): bump lodash from 4.17.20 to 4.17.21",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Summarize(tt.entries))
		})
	}
}
