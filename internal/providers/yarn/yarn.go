// ABOUTME: yarn classic package manager dialect for outdated and audit scans.
// ABOUTME: Both commands emit newline-delimited JSON events rather than a single document.

package yarn

import (
	"github.com/jfeddern/PatchRelay/internal/normalize"
	"github.com/jfeddern/PatchRelay/internal/types"
)

// Manager implements PackageManager for yarn
type Manager struct{}

// New creates the yarn dialect
func New() *Manager {
	return &Manager{}
}

// Name returns the manager name
func (m *Manager) Name() types.Manager {
	return types.ManagerYarn
}

// OutdatedCommand lists outdated packages as NDJSON
func (m *Manager) OutdatedCommand() (string, []string) {
	return "yarn", []string{"outdated", "--json"}
}

// AuditCommand runs a vulnerability audit as NDJSON
func (m *Manager) AuditCommand() (string, []string) {
	return "yarn", []string{"audit", "--json"}
}

// ParseOutdated reads the "table" event
func (m *Manager) ParseOutdated(raw []byte) ([]types.OutdatedPackage, error) {
	return normalize.ParseYarnOutdated(raw)
}

// ParseAudit reads "auditAdvisory" events
func (m *Manager) ParseAudit(raw []byte) ([]types.VulnerabilityInfo, error) {
	return normalize.ParseYarnAudit(raw)
}
