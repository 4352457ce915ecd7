// ABOUTME: Patch intelligence engine that orchestrates scanning, caching, state and history.
// ABOUTME: Package managers, runners, caches and stores are injected so every path is testable.

package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jfeddern/PatchRelay/internal/cache"
	"github.com/jfeddern/PatchRelay/internal/runner"
	"github.com/jfeddern/PatchRelay/internal/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// ErrScanIncomplete is returned when the outdated or audit command produced no usable output
var ErrScanIncomplete = errors.New("scan incomplete")

// PackageManager abstracts one package-manager dialect (npm, pnpm, yarn)
type PackageManager interface {
	Name() types.Manager
	OutdatedCommand() (string, []string)
	AuditCommand() (string, []string)
	ParseOutdated(raw []byte) ([]types.OutdatedPackage, error)
	ParseAudit(raw []byte) ([]types.VulnerabilityInfo, error)
}

// Locator detects the package manager governing a project root
type Locator func(root string) types.Manager

// ManagerResolver returns the dialect for a detected manager
type ManagerResolver func(manager types.Manager) (PackageManager, error)

// Cache stores normalized scan results per project
type Cache interface {
	Get(projectID string) (*types.ProjectPatchCache, bool)
	Put(entry *types.ProjectPatchCache) error
	Invalidate(projectID string) error
}

// StateStore persists aggregate scan counters
type StateStore interface {
	Read() types.PatchState
	UpdateProjectState(projectID string, counts types.ProjectState) error
	MarkFullScan(at time.Time) error
}

// HistoryStore persists applied-update records
type HistoryStore interface {
	Read() []types.PatchHistoryEntry
	Append(entry types.PatchHistoryEntry) (types.PatchHistoryEntry, error)
}

// Config holds configuration for the patch engine
type Config struct {
	Projects        []types.ProjectConfig
	RefreshInterval time.Duration
	Policy          cache.Policy
}

// Engine orchestrates patch data collection using pluggable providers
type Engine struct {
	locator  Locator
	managers ManagerResolver
	runner   runner.Runner
	cache    Cache
	state    StateStore
	history  HistoryStore
	config   *Config
	logger   *logrus.Logger

	scansTotal      *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec

	// Summary of the most recent queue build
	mutex        sync.RWMutex
	lastSummary  types.PatchSummary
	lastQueuedAt time.Time
}

// Dependencies bundles the collaborators an Engine needs
type Dependencies struct {
	Locator  Locator
	Managers ManagerResolver
	Runner   runner.Runner
	Cache    Cache
	State    StateStore
	History  HistoryStore
}

// NewEngine creates a new patch engine
func NewEngine(deps Dependencies, config *Config, logger *logrus.Logger) *Engine {
	if config.Policy.TTL == 0 {
		config.Policy = cache.DefaultPolicy()
	}
	return &Engine{
		locator:  deps.Locator,
		managers: deps.Managers,
		runner:   deps.Runner,
		cache:    deps.Cache,
		state:    deps.State,
		history:  deps.History,
		config:   config,
		logger:   logger,

		scansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "patchrelay_scans_total",
				Help: "Project scans by result (fresh, cached, failed)",
			},
			[]string{"result"},
		),
		commandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "patchrelay_command_duration_seconds",
				Help:    "Duration of package-manager outdated and audit commands",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30},
			},
			[]string{"manager", "command"},
		),
	}
}

// Collectors returns the engine-owned Prometheus collectors
func (e *Engine) Collectors() []prometheus.Collector {
	return []prometheus.Collector{e.scansTotal, e.commandDuration}
}

// Projects returns the configured projects
func (e *Engine) Projects() []types.ProjectConfig {
	return e.config.Projects
}

// Project looks up a configured project by id
func (e *Engine) Project(id string) (types.ProjectConfig, bool) {
	for _, p := range e.config.Projects {
		if p.ID == id {
			return p, true
		}
	}
	return types.ProjectConfig{}, false
}

func (e *Engine) now() time.Time {
	if e.config.Policy.Now != nil {
		return e.config.Policy.Now()
	}
	return time.Now()
}

// Start refreshes stale caches immediately and then on every refresh interval
func (e *Engine) Start(ctx context.Context) {
	logger := e.logger.WithField("component", "patch_engine")

	e.RefreshStale(ctx, e.config.Projects)

	interval := e.config.RefreshInterval
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.WithField("interval", interval).Info("Starting periodic patch refresh")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Patch engine stopping")
			return
		case <-ticker.C:
			e.RefreshStale(ctx, e.config.Projects)
		}
	}
}
