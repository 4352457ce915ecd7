// ABOUTME: npm package manager dialect for outdated and audit scans.
// ABOUTME: Reads keyed outdated objects and either audit report shape.

package npm

import (
	"github.com/jfeddern/PatchRelay/internal/normalize"
	"github.com/jfeddern/PatchRelay/internal/types"
)

// Manager implements PackageManager for npm
type Manager struct{}

// New creates the npm dialect
func New() *Manager {
	return &Manager{}
}

// Name returns the manager name
func (m *Manager) Name() types.Manager {
	return types.ManagerNPM
}

// OutdatedCommand lists outdated packages as JSON
func (m *Manager) OutdatedCommand() (string, []string) {
	return "npm", []string{"outdated", "--json"}
}

// AuditCommand runs a vulnerability audit as JSON
func (m *Manager) AuditCommand() (string, []string) {
	return "npm", []string{"audit", "--json"}
}

// ParseOutdated accepts the keyed object, including workspace arrays
func (m *Manager) ParseOutdated(raw []byte) ([]types.OutdatedPackage, error) {
	return normalize.ParseOutdatedKeyed(raw)
}

// ParseAudit accepts the v7+ vulnerabilities map and the legacy advisories map
func (m *Manager) ParseAudit(raw []byte) ([]types.VulnerabilityInfo, error) {
	return normalize.ParseAudit(raw)
}
