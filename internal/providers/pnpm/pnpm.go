// ABOUTME: pnpm package manager dialect for outdated and audit scans.
// ABOUTME: Outdated output is an array in older releases and a keyed object in newer ones.

package pnpm

import (
	"github.com/jfeddern/PatchRelay/internal/normalize"
	"github.com/jfeddern/PatchRelay/internal/types"
)

// Manager implements PackageManager for pnpm
type Manager struct{}

// New creates the pnpm dialect
func New() *Manager {
	return &Manager{}
}

// Name returns the manager name
func (m *Manager) Name() types.Manager {
	return types.ManagerPNPM
}

// OutdatedCommand lists outdated packages as JSON
func (m *Manager) OutdatedCommand() (string, []string) {
	return "pnpm", []string{"outdated", "--format", "json"}
}

// AuditCommand runs a vulnerability audit as JSON
func (m *Manager) AuditCommand() (string, []string) {
	return "pnpm", []string{"audit", "--json"}
}

// ParseOutdated accepts the array-of-objects and keyed shapes
func (m *Manager) ParseOutdated(raw []byte) ([]types.OutdatedPackage, error) {
	return normalize.ParseOutdated(raw)
}

// ParseAudit reads the advisories map
func (m *Manager) ParseAudit(raw []byte) ([]types.VulnerabilityInfo, error) {
	return normalize.ParseAdvisories(raw)
}
