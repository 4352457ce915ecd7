// ABOUTME: Factory for package-manager dialects, command runners and manifest locators.
// ABOUTME: Centralizes the choice between real subprocesses and the offline mock.

package providers

import (
	"fmt"
	"time"

	"github.com/jfeddern/PatchRelay/internal/engine"
	"github.com/jfeddern/PatchRelay/internal/manifest"
	"github.com/jfeddern/PatchRelay/internal/providers/mock"
	"github.com/jfeddern/PatchRelay/internal/runner"
	"github.com/jfeddern/PatchRelay/internal/types"
	"github.com/sirupsen/logrus"
)

// ProviderConfig holds configuration for creating providers
type ProviderConfig struct {
	CommandTimeout time.Duration
	MockMode       bool // canned tool output, no subprocesses
}

// CreatePackageManager returns the dialect for a detected manager
func CreatePackageManager(manager types.Manager) (engine.PackageManager, error) {
	ctor, ok := registry[manager]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedManager, manager)
	}
	return ctor(), nil
}

// CreateRunner creates the command runner based on configuration
func CreateRunner(config *ProviderConfig, logger *logrus.Logger) runner.Runner {
	if config.MockMode {
		logger.Info("Using mock command runner for testing")
		return mock.NewMockRunner(logger)
	}
	return runner.NewExecRunner(config.CommandTimeout, logger)
}

// CreateLocator creates the manifest locator based on configuration
func CreateLocator(config *ProviderConfig) engine.Locator {
	if config.MockMode {
		return mock.Detect
	}
	return manifest.Detect
}
