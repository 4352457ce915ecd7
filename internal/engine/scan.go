// ABOUTME: Project scanning: runs the outdated and audit commands concurrently and normalizes their output.
// ABOUTME: Forced rescans run one project at a time; read-through fetches run in parallel.

package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	npm "github.com/aquasecurity/go-npm-version/pkg"
	"github.com/jfeddern/PatchRelay/internal/runner"
	"github.com/jfeddern/PatchRelay/internal/types"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ScanResult reports the outcome of a batch scan
type ScanResult struct {
	Scanned        []string  `json:"scanned"`
	FailedProjects []string  `json:"failedProjects"`
	LastFullScan   time.Time `json:"lastFullScan"`
}

// ScanProject returns a live cache without running any command unless force is set.
// Otherwise it scans the project, writes the cache and updates the project's counters.
func (e *Engine) ScanProject(ctx context.Context, project types.ProjectConfig, force bool) (*types.ProjectPatchCache, error) {
	logger := e.logger.WithField("project", project.ID)

	if !force {
		if cached, ok := e.cache.Get(project.ID); ok {
			logger.Debug("Using cached patch data")
			e.scansTotal.WithLabelValues("cached").Inc()
			return cached, nil
		}
	}

	entry, err := e.scan(ctx, project)
	if err != nil {
		e.scansTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	if err := e.cache.Put(entry); err != nil {
		logger.WithError(err).Error("Failed to write patch cache")
	}
	if err := e.state.UpdateProjectState(project.ID, countsFor(entry)); err != nil {
		logger.WithError(err).Error("Failed to update patch state")
	}

	e.scansTotal.WithLabelValues("fresh").Inc()
	logger.WithFields(logrus.Fields{
		"manager":         entry.Manager,
		"outdated":        len(entry.Outdated),
		"vulnerabilities": len(entry.Vulnerabilities),
		"expires_at":      entry.ExpiresAt,
	}).Info("Scanned project")
	return entry, nil
}

func (e *Engine) scan(ctx context.Context, project types.ProjectConfig) (*types.ProjectPatchCache, error) {
	detected := e.locator(project.Path)
	if detected == types.ManagerNone {
		e.logger.WithField("project", project.ID).Debug("No lockfile found, nothing to scan")
		return e.config.Policy.NewEntry(project.ID, types.ManagerNone, nil, nil), nil
	}

	pm, err := e.managers(detected)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", project.ID, err)
	}

	var outdatedRes, auditRes runner.Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		name, args := pm.OutdatedCommand()
		outdatedRes = e.runner.Run(gctx, project.Path, name, args...)
		e.commandDuration.WithLabelValues(string(detected), "outdated").Observe(outdatedRes.Duration.Seconds())
		return nil
	})
	g.Go(func() error {
		name, args := pm.AuditCommand()
		auditRes = e.runner.Run(gctx, project.Path, name, args...)
		e.commandDuration.WithLabelValues(string(detected), "audit").Observe(auditRes.Duration.Seconds())
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger := e.logger.WithFields(logrus.Fields{"project": project.ID, "manager": detected})
	for _, c := range []struct {
		command string
		res     runner.Result
	}{{"outdated", outdatedRes}, {"audit", auditRes}} {
		if res := c.res; !runner.Usable(res) {
			command := c.command
			logger.WithFields(logrus.Fields{
				"command":   command,
				"exit_code": res.ExitCode,
			}).WithError(res.Err).Warn("Command produced no usable output")
			return nil, fmt.Errorf("project %s: %s: %w", project.ID, command, ErrScanIncomplete)
		}
	}

	outdated, err := pm.ParseOutdated(outdatedRes.Stdout)
	if err != nil {
		logger.WithError(err).Warn("Failed to parse outdated output")
		outdated = nil
	}
	vulns, err := pm.ParseAudit(auditRes.Stdout)
	if err != nil {
		logger.WithError(err).Warn("Failed to parse audit output")
		vulns = nil
	}

	enrich(vulns, outdated)
	return e.config.Policy.NewEntry(project.ID, detected, outdated, vulns), nil
}

// enrich fills versions the audit tool omitted and whether a transitive
// finding's parent is already at its latest release
func enrich(vulns []types.VulnerabilityInfo, outdated []types.OutdatedPackage) {
	byName := make(map[string]types.OutdatedPackage, len(outdated))
	for _, pkg := range outdated {
		byName[pkg.Name] = pkg
	}

	for i := range vulns {
		v := &vulns[i]
		if v.CurrentVersion == "" {
			if pkg, ok := byName[v.Name]; ok {
				v.CurrentVersion = pkg.Current
			}
		}
		if !v.IsDirect && v.ParentPackage != "" && v.ParentAtLatest == nil {
			atLatest := true
			if parent, ok := byName[v.ParentPackage]; ok {
				atLatest = sameVersion(parent.Current, parent.Latest)
			}
			v.ParentAtLatest = &atLatest
		}
		v.Finalize()
	}
}

// sameVersion compares under npm semantics, falling back to string equality
func sameVersion(a, b string) bool {
	va, err := npm.NewVersion(a)
	if err != nil {
		return a == b
	}
	vb, err := npm.NewVersion(b)
	if err != nil {
		return a == b
	}
	return !va.LessThan(vb) && !va.GreaterThan(vb)
}

func countsFor(entry *types.ProjectPatchCache) types.ProjectState {
	counts := types.ProjectState{
		OutdatedCount: len(entry.Outdated),
		VulnCount:     len(entry.Vulnerabilities),
		LastChecked:   entry.Timestamp,
	}
	for _, v := range entry.Vulnerabilities {
		if v.Severity == types.SeverityCritical {
			counts.CriticalCount++
		}
	}
	return counts
}

// ScanAll force-rescans every project one at a time. A failing project is
// recorded and skipped; only cancellation stops the batch.
func (e *Engine) ScanAll(ctx context.Context, projects []types.ProjectConfig) (*ScanResult, error) {
	logger := e.logger.WithField("operation", "scan_all")
	startTime := time.Now()

	result := &ScanResult{Scanned: []string{}, FailedProjects: []string{}}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(1)
	for _, project := range projects {
		project := project
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if _, err := e.ScanProject(gctx, project, true); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logger.WithError(err).WithField("project", project.ID).Warn("Project scan failed")
				mu.Lock()
				result.FailedProjects = append(result.FailedProjects, project.ID)
				mu.Unlock()
				return nil
			}
			mu.Lock()
			result.Scanned = append(result.Scanned, project.ID)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	result.LastFullScan = e.now()
	if err := e.state.MarkFullScan(result.LastFullScan); err != nil {
		logger.WithError(err).Error("Failed to record full scan time")
	}

	logger.WithFields(logrus.Fields{
		"duration": time.Since(startTime),
		"scanned":  len(result.Scanned),
		"failed":   len(result.FailedProjects),
	}).Info("Full patch scan completed")
	return result, nil
}

// FetchAll reads every project's cache in parallel, scanning those without a live cache.
// Projects that fail to scan are left out of the result.
func (e *Engine) FetchAll(ctx context.Context, projects []types.ProjectConfig) []*types.ProjectPatchCache {
	caches := make([]*types.ProjectPatchCache, len(projects))

	g, gctx := errgroup.WithContext(ctx)
	for i, project := range projects {
		i, project := i, project
		g.Go(func() error {
			entry, err := e.ScanProject(gctx, project, false)
			if err != nil {
				e.logger.WithError(err).WithField("project", project.ID).Warn("Project fetch failed")
				return nil
			}
			caches[i] = entry
			return nil
		})
	}
	_ = g.Wait()

	out := make([]*types.ProjectPatchCache, 0, len(caches))
	for _, c := range caches {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

// RefreshStale rebuilds expired caches one project at a time
func (e *Engine) RefreshStale(ctx context.Context, projects []types.ProjectConfig) {
	for _, project := range projects {
		if ctx.Err() != nil {
			return
		}
		if _, err := e.ScanProject(ctx, project, false); err != nil {
			e.logger.WithError(err).WithField("project", project.ID).Warn("Background refresh failed")
		}
	}
}
