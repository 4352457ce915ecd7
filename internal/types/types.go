// ABOUTME: Common types shared across the PatchRelay system.
// ABOUTME: Defines projects, normalized scan records, queue items, state and history entries.

package types

import "time"

// Manager identifies the package manager governing a project
type Manager string

const (
	ManagerNone Manager = "none"
	ManagerPNPM Manager = "pnpm"
	ManagerNPM  Manager = "npm"
	ManagerYarn Manager = "yarn"
)

// Severity of a vulnerability advisory
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities so that critical > high > moderate > low > info.
// Unknown values rank below info.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 5
	case SeverityHigh:
		return 4
	case SeverityModerate:
		return 3
	case SeverityLow:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// ParseSeverity maps tool-reported severities onto the canonical set.
// "medium" is reported by some tools in place of "moderate".
func ParseSeverity(raw string) Severity {
	switch raw {
	case "critical", "CRITICAL":
		return SeverityCritical
	case "high", "HIGH":
		return SeverityHigh
	case "moderate", "MODERATE", "medium", "MEDIUM":
		return SeverityModerate
	case "low", "LOW":
		return SeverityLow
	default:
		return SeverityInfo
	}
}

// UpdateType is the magnitude of a version change
type UpdateType string

const (
	UpdateMajor UpdateType = "major"
	UpdateMinor UpdateType = "minor"
	UpdatePatch UpdateType = "patch"
)

// DependencyKind tells whether an outdated package is a runtime or dev dependency
type DependencyKind string

const (
	DependencyDirect DependencyKind = "direct"
	DependencyDev    DependencyKind = "dev"
)

// ItemType distinguishes vulnerability remediation from plain staleness
type ItemType string

const (
	ItemVulnerability ItemType = "vulnerability"
	ItemOutdated      ItemType = "outdated"
)

// Trigger records who initiated an applied update
type Trigger string

const (
	TriggerManual Trigger = "manual"
	TriggerAuto   Trigger = "auto"
)

// ProjectConfig is a locally checked-out project supplied by the configuration store
type ProjectConfig struct {
	ID       string            `json:"id" mapstructure:"id"`
	Name     string            `json:"name" mapstructure:"name"`
	Path     string            `json:"path" mapstructure:"path"`
	Port     int               `json:"port,omitempty" mapstructure:"port"`
	Category string            `json:"category,omitempty" mapstructure:"category"`
	Scripts  map[string]string `json:"scripts,omitempty" mapstructure:"scripts"`
	Holds    []string          `json:"holds,omitempty" mapstructure:"holds"`
}

// IsHeld reports whether pkg is excluded from remediation for this project
func (p ProjectConfig) IsHeld(pkg string) bool {
	for _, h := range p.Holds {
		if h == pkg {
			return true
		}
	}
	return false
}

// OutdatedPackage is one package whose installed version lags the registry
type OutdatedPackage struct {
	Name           string         `json:"name"`
	Current        string         `json:"current"`
	Wanted         string         `json:"wanted"`
	Latest         string         `json:"latest"`
	DependencyKind DependencyKind `json:"dependencyKind"`
}

// VulnerabilityInfo is one advisory finding against one package.
//
// FixExists, FixBreaking and IsDirect are kept apart; FixAvailable is their
// collapsed form and is only filled in by Finalize.
type VulnerabilityInfo struct {
	Name           string   `json:"name"`
	Severity       Severity `json:"severity"`
	Title          string   `json:"title"`
	AdvisoryID     string   `json:"advisoryId,omitempty"`
	CVEs           []string `json:"cves"`
	URL            string   `json:"url,omitempty"`
	FixAvailable   bool     `json:"fixAvailable"`
	FixExists      bool     `json:"fixExists"`
	FixBreaking    bool     `json:"fixBreaking"`
	FixVersion     string   `json:"fixVersion,omitempty"`
	CurrentVersion string   `json:"currentVersion,omitempty"`
	IsDirect       bool     `json:"isDirect"`
	Via            []string `json:"via,omitempty"`
	ParentPackage  string   `json:"parentPackage,omitempty"`
	ParentAtLatest *bool    `json:"parentAtLatest,omitempty"`
}

// Actionable reports whether the user can fix the finding by changing their own manifest
// without a breaking upgrade.
func (v VulnerabilityInfo) Actionable() bool {
	return v.FixExists && !v.FixBreaking && v.IsDirect
}

// Finalize collapses the internal fix flags into FixAvailable
func (v *VulnerabilityInfo) Finalize() {
	v.FixAvailable = v.Actionable()
	if v.CVEs == nil {
		v.CVEs = []string{}
	}
}

// ProjectPatchCache holds the normalized scan results for one project
type ProjectPatchCache struct {
	ProjectID       string              `json:"projectId"`
	Manager         Manager             `json:"manager,omitempty"`
	Timestamp       time.Time           `json:"timestamp"`
	ExpiresAt       time.Time           `json:"expiresAt"`
	Outdated        []OutdatedPackage   `json:"outdated"`
	Vulnerabilities []VulnerabilityInfo `json:"vulnerabilities"`
}

// Valid reports whether the cache is live at now
func (c *ProjectPatchCache) Valid(now time.Time) bool {
	return c != nil && c.ExpiresAt.After(c.Timestamp) && now.Before(c.ExpiresAt)
}

// PatchQueueItem is a single project-package remediation unit
type PatchQueueItem struct {
	Priority       int            `json:"priority"`
	Type           ItemType       `json:"type"`
	Severity       Severity       `json:"severity"`
	Package        string         `json:"package"`
	CurrentVersion string         `json:"currentVersion"`
	TargetVersion  string         `json:"targetVersion"`
	UpdateType     UpdateType     `json:"updateType"`
	ProjectID      string         `json:"projectId"`
	ProjectName    string         `json:"projectName"`
	IsHeld         bool           `json:"isHeld"`
	FixAvailable   bool           `json:"fixAvailable"`
	DependencyKind DependencyKind `json:"dependencyKind,omitempty"`
	Title          string         `json:"title,omitempty"`
	IsDirect       *bool          `json:"isDirect,omitempty"`
	Via            []string       `json:"via,omitempty"`
	ParentPackage  string         `json:"parentPackage,omitempty"`
	ParentAtLatest *bool          `json:"parentAtLatest,omitempty"`
	CVEs           []string       `json:"cves,omitempty"`
	URL            string         `json:"url,omitempty"`
	URLs           []string       `json:"urls,omitempty"`
}

// PatchSummary aggregates a queue
type PatchSummary struct {
	Critical      int `json:"critical"`
	High          int `json:"high"`
	Moderate      int `json:"moderate"`
	OutdatedMajor int `json:"outdatedMajor"`
	OutdatedMinor int `json:"outdatedMinor"`
	OutdatedPatch int `json:"outdatedPatch"`
}

// ProjectState is the per-project counter snapshot kept in PatchState
type ProjectState struct {
	OutdatedCount int       `json:"outdatedCount"`
	VulnCount     int       `json:"vulnCount"`
	CriticalCount int       `json:"criticalCount"`
	LastChecked   time.Time `json:"lastChecked"`
}

// PatchState is the aggregate scan state for list views
type PatchState struct {
	LastFullScan time.Time               `json:"lastFullScan"`
	Projects     map[string]ProjectState `json:"projects"`
}

// PatchHistoryEntry is the immutable record of one applied package update
type PatchHistoryEntry struct {
	ID          string     `json:"id"`
	Timestamp   time.Time  `json:"timestamp"`
	ProjectID   string     `json:"projectId"`
	Package     string     `json:"package"`
	FromVersion string     `json:"fromVersion"`
	ToVersion   string     `json:"toVersion"`
	UpdateType  UpdateType `json:"updateType"`
	Trigger     Trigger    `json:"trigger"`
	Success     bool       `json:"success"`
	Output      string     `json:"output"`
	Error       string     `json:"error,omitempty"`
}
