// ABOUTME: Persisted aggregate scan state: last full scan and per-project counters.
// ABOUTME: Cheap to read for list views that should not load full project caches.

package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jfeddern/PatchRelay/internal/types"
	"github.com/natefinch/atomic"
	"github.com/sirupsen/logrus"
)

// StateStore reads and writes the PatchState file
type StateStore struct {
	path   string
	now    func() time.Time
	logger *logrus.Logger

	mutex sync.Mutex
}

// NewStateStore creates a store for the state file at path
func NewStateStore(path string, now func() time.Time, logger *logrus.Logger) *StateStore {
	if now == nil {
		now = time.Now
	}
	return &StateStore{path: path, now: now, logger: logger}
}

// Read returns the persisted state; a missing or corrupt file reads as empty
func (s *StateStore) Read() types.PatchState {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.read()
}

func (s *StateStore) read() types.PatchState {
	state := types.PatchState{Projects: make(map[string]types.ProjectState)}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.WithError(err).Warn("Failed to read patch state")
		}
		return state
	}

	if err := json.Unmarshal(data, &state); err != nil {
		s.logger.WithError(err).Warn("Corrupt patch state, starting empty")
		return types.PatchState{Projects: make(map[string]types.ProjectState)}
	}
	if state.Projects == nil {
		state.Projects = make(map[string]types.ProjectState)
	}
	return state
}

func (s *StateStore) write(state types.PatchState) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode patch state: %w", err)
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write patch state: %w", err)
	}
	return nil
}

// UpdateProjectState overwrites one project's counters and refreshes lastFullScan
func (s *StateStore) UpdateProjectState(projectID string, counts types.ProjectState) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()
	if counts.LastChecked.IsZero() {
		counts.LastChecked = now
	}

	state := s.read()
	state.Projects[projectID] = counts
	state.LastFullScan = now

	if err := s.write(state); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"project":        projectID,
		"outdated_count": counts.OutdatedCount,
		"vuln_count":     counts.VulnCount,
		"critical_count": counts.CriticalCount,
	}).Debug("Updated project patch state")
	return nil
}

// MarkFullScan records the completion time of a scan across all projects
func (s *StateStore) MarkFullScan(at time.Time) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	state := s.read()
	state.LastFullScan = at
	return s.write(state)
}
