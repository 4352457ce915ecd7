// ABOUTME: Registry of package-manager dialects keyed by detected manager.
// ABOUTME: Adding a dialect means registering one constructor here, not touching the engine.

package providers

import (
	"errors"

	"github.com/jfeddern/PatchRelay/internal/engine"
	"github.com/jfeddern/PatchRelay/internal/providers/npm"
	"github.com/jfeddern/PatchRelay/internal/providers/pnpm"
	"github.com/jfeddern/PatchRelay/internal/providers/yarn"
	"github.com/jfeddern/PatchRelay/internal/types"
)

// ErrUnsupportedManager is returned for managers without a registered dialect
var ErrUnsupportedManager = errors.New("unsupported package manager")

var registry = map[types.Manager]func() engine.PackageManager{
	types.ManagerNPM:  func() engine.PackageManager { return npm.New() },
	types.ManagerPNPM: func() engine.PackageManager { return pnpm.New() },
	types.ManagerYarn: func() engine.PackageManager { return yarn.New() },
}

// Supported lists the managers with a registered dialect
func Supported() []types.Manager {
	return []types.Manager{types.ManagerPNPM, types.ManagerNPM, types.ManagerYarn}
}
