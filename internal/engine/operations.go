// ABOUTME: Read and write operations exposed to the API and CLI on top of the scan path.
// ABOUTME: Queue builds, state and history reads, applied-update recording and cache invalidation.

package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/jfeddern/PatchRelay/internal/commitmsg"
	"github.com/jfeddern/PatchRelay/internal/queue"
	"github.com/jfeddern/PatchRelay/internal/types"
	"github.com/sirupsen/logrus"
)

// QueueResult is a built queue with its summary
type QueueResult struct {
	Queue   []types.PatchQueueItem `json:"queue"`
	Summary types.PatchSummary     `json:"summary"`
}

// BuildQueue fetches every project's cache (scanning stale ones) and builds the global queue
func (e *Engine) BuildQueue(ctx context.Context, projects []types.ProjectConfig) QueueResult {
	caches := e.FetchAll(ctx, projects)

	byID := make(map[string]types.ProjectConfig, len(projects))
	for _, p := range projects {
		byID[p.ID] = p
	}
	names := func(id string) string { return byID[id].Name }
	held := func(id, pkg string) bool { return byID[id].IsHeld(pkg) }

	items, summary := queue.Build(caches, names, held)

	e.mutex.Lock()
	e.lastSummary = summary
	e.lastQueuedAt = e.now()
	e.mutex.Unlock()

	e.logger.WithFields(logrus.Fields{
		"projects": len(caches),
		"items":    len(items),
	}).Debug("Built patch queue")
	return QueueResult{Queue: items, Summary: summary}
}

// QueueSummary returns the summary of the last queue build and when it was built
func (e *Engine) QueueSummary() (types.PatchSummary, time.Time) {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.lastSummary, e.lastQueuedAt
}

// ReadPatchState returns the persisted aggregate scan state
func (e *Engine) ReadPatchState() types.PatchState {
	return e.state.Read()
}

// ReadPatchHistory returns history newest first, optionally narrowed to one project
// and limited to the first limit entries when limit > 0
func (e *Engine) ReadPatchHistory(projectID string, limit int) []types.PatchHistoryEntry {
	entries := e.history.Read()
	out := []types.PatchHistoryEntry{}
	for _, entry := range entries {
		if projectID != "" && entry.ProjectID != projectID {
			continue
		}
		out = append(out, entry)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// AppendHistory records an applied update without touching the cache
func (e *Engine) AppendHistory(entry types.PatchHistoryEntry) (types.PatchHistoryEntry, error) {
	return e.history.Append(entry)
}

// RecordUpdate appends a history entry and, when the update succeeded,
// invalidates the project's cache so the next read rescans it
func (e *Engine) RecordUpdate(entry types.PatchHistoryEntry) (types.PatchHistoryEntry, error) {
	stored, err := e.history.Append(entry)
	if err != nil {
		return stored, fmt.Errorf("failed to record update: %w", err)
	}

	e.logger.WithFields(logrus.Fields{
		"project": stored.ProjectID,
		"package": stored.Package,
		"from":    stored.FromVersion,
		"to":      stored.ToVersion,
		"success": stored.Success,
	}).Info("Recorded applied update")

	if stored.Success {
		if err := e.InvalidateProjectCache(stored.ProjectID); err != nil {
			return stored, err
		}
	}
	return stored, nil
}

// InvalidateProjectCache drops a project's cache; an absent cache is not an error
func (e *Engine) InvalidateProjectCache(projectID string) error {
	if err := e.cache.Invalidate(projectID); err != nil {
		return fmt.Errorf("failed to invalidate cache for %s: %w", projectID, err)
	}
	e.logger.WithField("project", projectID).Debug("Invalidated patch cache")
	return nil
}

// CommitMessage summarizes the applied updates for a project, newest history first
func (e *Engine) CommitMessage(projectID string) string {
	return commitmsg.Summarize(e.ReadPatchHistory(projectID, 0))
}
