// ABOUTME: Unit tests for warning stripping, version classification and CVE extraction.
// ABOUTME: Exercises the exact magnitude rules including range prefixes and non-numeric parts.

package normalize

import (
	"testing"

	"github.com/jfeddern/PatchRelay/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	body, err := ExtractJSON([]byte("npm WARN config production Use `--omit=dev` instead.\n{\"a\":1}"))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(body))

	body, err = ExtractJSON([]byte(" WARN  deprecated\n[1,2]"))
	require.NoError(t, err)
	assert.Equal(t, "[1,2]", string(body))

	_, err = ExtractJSON([]byte("ERR_PNPM_NO_LOCKFILE"))
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestUpdateType(t *testing.T) {
	tests := []struct {
		current  string
		target   string
		expected types.UpdateType
	}{
		{"4.17.20", "4.17.21", types.UpdatePatch},
		{"1.2.3", "1.3.0", types.UpdateMinor},
		{"1.2.3", "2.0.0", types.UpdateMajor},
		{"^1.2.3", "~2.0.0", types.UpdateMajor},
		{"~1.2.3", "1.4.0", types.UpdateMinor},
		{"1.2.3", "latest", types.UpdatePatch},
		{"", "1.0.0", types.UpdatePatch},
		{"1", "1.2.0", types.UpdatePatch},
		{"1.x", "1.2.0", types.UpdatePatch},
		{"1.0.0-beta.1", "1.1.0", types.UpdateMinor},
		{"v1.0.0", "2.0.0", types.UpdatePatch},
	}

	for _, tt := range tests {
		t.Run(tt.current+"->"+tt.target, func(t *testing.T) {
			assert.Equal(t, tt.expected, UpdateType(tt.current, tt.target))
		})
	}
}

func TestStripRange(t *testing.T) {
	assert.Equal(t, "1.2.3", StripRange("^1.2.3"))
	assert.Equal(t, "1.2.3", StripRange("~1.2.3"))
	assert.Equal(t, "1.2.3", StripRange(" 1.2.3 "))
	assert.Equal(t, "~1.2.3", StripRange("^~1.2.3"))
}

func TestExtractCVEs(t *testing.T) {
	cves := ExtractCVEs(
		"Prototype Pollution (CVE-2021-23337)",
		"https://nvd.nist.gov/vuln/detail/CVE-2021-23337",
		"see CVE-2020-8203",
	)
	assert.Equal(t, []string{"CVE-2021-23337", "CVE-2020-8203"}, cves)
	assert.Empty(t, ExtractCVEs("no identifiers here"))
}
