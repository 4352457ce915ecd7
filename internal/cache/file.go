// ABOUTME: Disk-persisted project cache, one JSON file per project.
// ABOUTME: Files are written atomically; unreadable or expired files read as a miss.

package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/jfeddern/PatchRelay/internal/types"
	"github.com/natefinch/atomic"
	"github.com/sirupsen/logrus"
)

// FileCache stores each project's cache under dir/<projectId>.json
type FileCache struct {
	dir    string
	policy Policy
	logger *logrus.Logger
}

// NewFileCache creates a disk cache rooted at dir
func NewFileCache(dir string, policy Policy, logger *logrus.Logger) *FileCache {
	return &FileCache{dir: dir, policy: policy, logger: logger}
}

// Dir returns the cache directory
func (c *FileCache) Dir() string {
	return c.dir
}

func (c *FileCache) path(projectID string) string {
	name := url.PathEscape(projectID)
	if name == "" || name == "." || name == ".." {
		name = "_" + name
	}
	return filepath.Join(c.dir, name+".json")
}

// Get returns the project's cache only while it is live
func (c *FileCache) Get(projectID string) (*types.ProjectPatchCache, bool) {
	logger := c.logger.WithField("project", projectID)

	data, err := os.ReadFile(c.path(projectID))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.WithError(err).Warn("Failed to read project cache, treating as miss")
		}
		return nil, false
	}

	var entry types.ProjectPatchCache
	if err := json.Unmarshal(data, &entry); err != nil {
		logger.WithError(err).Warn("Corrupt project cache, treating as miss")
		return nil, false
	}

	if !entry.Valid(c.policy.now()) {
		logger.WithField("expires_at", entry.ExpiresAt).Debug("Project cache expired")
		return nil, false
	}

	logger.Debug("Cache hit")
	return &entry, true
}

// Put replaces the project's cache unconditionally
func (c *FileCache) Put(entry *types.ProjectPatchCache) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode project cache: %w", err)
	}

	if err := atomic.WriteFile(c.path(entry.ProjectID), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write project cache: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"project":    entry.ProjectID,
		"expires_at": entry.ExpiresAt,
	}).Debug("Cached scan results")
	return nil
}

// Invalidate deletes the project's cache file; a missing file is not an error
func (c *FileCache) Invalidate(projectID string) error {
	err := os.Remove(c.path(projectID))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to invalidate project cache: %w", err)
	}
	c.logger.WithField("project", projectID).Debug("Invalidated project cache")
	return nil
}
