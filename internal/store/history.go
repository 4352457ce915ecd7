// ABOUTME: Append-only audit log of applied package updates, newest first.
// ABOUTME: Capped at a fixed number of entries; older entries are dropped permanently.

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

	"github.com/google/uuid"
	"github.com/jfeddern/PatchRelay/internal/types"
	"github.com/natefinch/atomic"
	"github.com/sirupsen/logrus"
)

// DefaultHistoryLimit is the number of entries retained
const DefaultHistoryLimit = 500

// HistoryStore persists PatchHistoryEntry records
type HistoryStore struct {
	path   string
	limit  int
	now    func() time.Time
	logger *logrus.Logger

	mutex sync.Mutex
}

// NewHistoryStore creates a store for the history file at path
func NewHistoryStore(path string, limit int, now func() time.Time, logger *logrus.Logger) *HistoryStore {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if now == nil {
		now = time.Now
	}
	return &HistoryStore{path: path, limit: limit, now: now, logger: logger}
}

// Read returns all retained entries, most recent first
func (h *HistoryStore) Read() []types.PatchHistoryEntry {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.read()
}

func (h *HistoryStore) read() []types.PatchHistoryEntry {
	entries := []types.PatchHistoryEntry{}

	data, err := os.ReadFile(h.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			h.logger.WithError(err).Warn("Failed to read patch history")
		}
		return entries
	}

	if err := json.Unmarshal(data, &entries); err != nil {
		h.logger.WithError(err).Warn("Corrupt patch history, starting empty")
		return []types.PatchHistoryEntry{}
	}
	return entries
}

// Append prepends entry and truncates the log to the retention limit.
// A missing id or timestamp is filled in; the stored entry is returned.
func (h *HistoryStore) Append(entry types.PatchHistoryEntry) (types.PatchHistoryEntry, error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = h.now()
	}

	existing := h.read()
	entries := make([]types.PatchHistoryEntry, 0, len(existing)+1)
	entries = append(entries, entry)
	entries = append(entries, existing...)

	dropped := 0
	if len(entries) > h.limit {
		dropped = len(entries) - h.limit
		entries = entries[:h.limit]
	}

	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return entry, fmt.Errorf("failed to create history directory: %w", err)
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return entry, fmt.Errorf("failed to encode patch history: %w", err)
	}
	if err := atomic.WriteFile(h.path, bytes.NewReader(data)); err != nil {
		return entry, fmt.Errorf("failed to write patch history: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"project": entry.ProjectID,
		"package": entry.Package,
		"success": entry.Success,
		"dropped": dropped,
	}).Debug("Appended patch history entry")
	return entry, nil
}
