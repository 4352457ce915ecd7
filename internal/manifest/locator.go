// ABOUTME: Detects which package manager governs a project from lockfile presence.
// ABOUTME: The lockfile, not a config flag, is the source of truth for the resolver used.

package manifest

import (
	"os"
	"path/filepath"

	"github.com/jfeddern/PatchRelay/internal/types"
)

// Lockfile pairs a lockfile name with the manager that writes it
type Lockfile struct {
	Name    string
	Manager types.Manager
}

// Lockfiles in detection priority order
var Lockfiles = []Lockfile{
	{Name: "pnpm-lock.yaml", Manager: types.ManagerPNPM},
	{Name: "package-lock.json", Manager: types.ManagerNPM},
	{Name: "yarn.lock", Manager: types.ManagerYarn},
}

// Detect returns the manager of the first lockfile found under root, or ManagerNone
func Detect(root string) types.Manager {
	for _, lf := range Lockfiles {
		info, err := os.Stat(filepath.Join(root, lf.Name))
		if err == nil && !info.IsDir() {
			return lf.Manager
		}
	}
	return types.ManagerNone
}
