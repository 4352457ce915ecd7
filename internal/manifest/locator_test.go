// ABOUTME: Unit tests for lockfile-based package manager detection.
// ABOUTME: Covers priority order, missing lockfiles and directories named like lockfiles.

package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jfeddern/PatchRelay/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name      string
		lockfiles []string
		expected  types.Manager
	}{
		{name: "no lockfile", expected: types.ManagerNone},
		{name: "pnpm only", lockfiles: []string{"pnpm-lock.yaml"}, expected: types.ManagerPNPM},
		{name: "npm only", lockfiles: []string{"package-lock.json"}, expected: types.ManagerNPM},
		{name: "yarn only", lockfiles: []string{"yarn.lock"}, expected: types.ManagerYarn},
		{name: "pnpm wins over npm and yarn", lockfiles: []string{"yarn.lock", "package-lock.json", "pnpm-lock.yaml"}, expected: types.ManagerPNPM},
		{name: "npm wins over yarn", lockfiles: []string{"yarn.lock", "package-lock.json"}, expected: types.ManagerNPM},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			for _, lf := range tt.lockfiles {
				require.NoError(t, os.WriteFile(filepath.Join(root, lf), []byte{}, 0o644))
			}
			assert.Equal(t, tt.expected, Detect(root))
		})
	}
}

func TestDetectIgnoresDirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "pnpm-lock.yaml"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "yarn.lock"), []byte{}, 0o644))

	assert.Equal(t, types.ManagerYarn, Detect(root))
}

func TestDetectMissingRoot(t *testing.T) {
	assert.Equal(t, types.ManagerNone, Detect(filepath.Join(t.TempDir(), "does-not-exist")))
}
