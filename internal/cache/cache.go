// ABOUTME: In-memory project cache used when persistence is disabled.
// ABOUTME: Same expiry semantics as the disk cache, with periodic cleanup of dead entries.

package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jfeddern/PatchRelay/internal/types"

	"github.com/sirupsen/logrus"
)

type MemoryCache struct {
	cache  map[string]*types.ProjectPatchCache
	mutex  sync.RWMutex
	policy Policy
	logger *logrus.Logger
}

func NewMemoryCache(policy Policy, logger *logrus.Logger) *MemoryCache {
	return &MemoryCache{
		cache:  make(map[string]*types.ProjectPatchCache),
		policy: policy,
		logger: logger,
	}
}

func (c *MemoryCache) Get(projectID string) (*types.ProjectPatchCache, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.cache[projectID]
	if !exists {
		return nil, false
	}

	// Expired entries are left for Cleanup or the next Put
	if !entry.Valid(c.policy.now()) {
		return nil, false
	}

	c.logger.WithField("project", projectID).Debug("Cache hit")
	copied := *entry
	return &copied, true
}

func (c *MemoryCache) Put(entry *types.ProjectPatchCache) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	copied := *entry
	c.cache[entry.ProjectID] = &copied

	c.logger.WithField("project", entry.ProjectID).Debug("Cached scan results")
	return nil
}

func (c *MemoryCache) Invalidate(projectID string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.cache, projectID)
	return nil
}

// StartCleanup removes expired entries every interval until ctx is done
func (c *MemoryCache) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, expired := c.Stats(); expired > 0 {
				c.Cleanup()
			}
		}
	}
}

func (c *MemoryCache) Cleanup() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.policy.now()
	expiredCount := 0

	for projectID, entry := range c.cache {
		if !entry.Valid(now) {
			delete(c.cache, projectID)
			expiredCount++
		}
	}

	if expiredCount > 0 {
		c.logger.WithFields(logrus.Fields{
			"expired_entries":   expiredCount,
			"remaining_entries": len(c.cache),
		}).Debug("Cache cleanup completed")
	}
}

func (c *MemoryCache) Stats() (total int, expired int) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	now := c.policy.now()
	total = len(c.cache)

	for _, entry := range c.cache {
		if !entry.Valid(now) {
			expired++
		}
	}

	return total, expired
}
