// ABOUTME: Unit tests for project caching, expiry policy and invalidation.
// ABOUTME: Uses an injected clock so expiry is tested without sleeping.

package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jfeddern/PatchRelay/internal/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func testPolicy(clock *fakeClock) Policy {
	return Policy{
		TTL:    DefaultTTL,
		Jitter: DefaultJitter,
		Now:    clock.Now,
		Rand:   func() float64 { return 0.5 },
	}
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func sampleEntry(policy Policy, projectID string) *types.ProjectPatchCache {
	return policy.NewEntry(projectID, types.ManagerNPM,
		[]types.OutdatedPackage{{Name: "lodash", Current: "4.17.20", Wanted: "4.17.21", Latest: "4.17.21", DependencyKind: types.DependencyDirect}},
		nil,
	)
}

func TestPolicyLifetimeBounds(t *testing.T) {
	policy := DefaultPolicy()

	for i := 0; i < 1000; i++ {
		entry := policy.NewEntry("p", types.ManagerNPM, nil, nil)
		lifetime := entry.ExpiresAt.Sub(entry.Timestamp)
		require.GreaterOrEqual(t, lifetime, 60*time.Minute)
		require.LessOrEqual(t, lifetime, 75*time.Minute)
		require.True(t, entry.ExpiresAt.After(entry.Timestamp))
	}
}

func TestPolicyInjectedRandom(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	policy := testPolicy(clock)

	entry := policy.NewEntry("p", types.ManagerPNPM, nil, nil)
	assert.Equal(t, clock.now, entry.Timestamp)
	assert.Equal(t, 67*time.Minute+30*time.Second, entry.ExpiresAt.Sub(entry.Timestamp))
	assert.NotNil(t, entry.Outdated)
	assert.NotNil(t, entry.Vulnerabilities)

	policy.Rand = func() float64 { return 0 }
	assert.Equal(t, 60*time.Minute, policy.Lifetime())

	policy.Jitter = 0
	assert.Equal(t, 60*time.Minute, policy.Lifetime())
}

func TestMemoryCache(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	policy := testPolicy(clock)
	cache := NewMemoryCache(policy, testLogger())

	t.Run("cache miss", func(t *testing.T) {
		_, ok := cache.Get("nonexistent")
		assert.False(t, ok)
	})

	t.Run("cache hit", func(t *testing.T) {
		require.NoError(t, cache.Put(sampleEntry(policy, "web")))

		result, ok := cache.Get("web")
		require.True(t, ok)
		assert.Equal(t, "web", result.ProjectID)
		assert.Len(t, result.Outdated, 1)
	})

	t.Run("cache stats", func(t *testing.T) {
		total, expired := cache.Stats()
		assert.Equal(t, 1, total)
		assert.Equal(t, 0, expired)
	})

	t.Run("expiry", func(t *testing.T) {
		clock.Advance(2 * time.Hour)
		_, ok := cache.Get("web")
		assert.False(t, ok)

		total, expired := cache.Stats()
		assert.Equal(t, 1, total, "reads do not delete expired entries")
		assert.Equal(t, 1, expired)

		cache.Cleanup()
		total, _ = cache.Stats()
		assert.Equal(t, 0, total)
	})

	t.Run("invalidate missing is a no-op", func(t *testing.T) {
		assert.NoError(t, cache.Invalidate("never-cached"))
	})
}

func TestMemoryCacheStartCleanup(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	policy := testPolicy(clock)
	cache := NewMemoryCache(policy, testLogger())

	require.NoError(t, cache.Put(sampleEntry(policy, "web")))
	clock.Advance(2 * time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cache.StartCleanup(ctx, 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		total, _ := cache.Stats()
		return total == 0
	}, time.Second, 5*time.Millisecond, "expired entries are swept by the cleanup loop")
}

func TestFileCacheRoundTrip(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	policy := testPolicy(clock)
	cache := NewFileCache(filepath.Join(t.TempDir(), "patches"), policy, testLogger())

	entry := sampleEntry(policy, "web")
	require.NoError(t, cache.Put(entry))

	result, ok := cache.Get("web")
	require.True(t, ok)
	assert.Equal(t, entry.ExpiresAt.UTC(), result.ExpiresAt.UTC())
	assert.Equal(t, entry.Outdated, result.Outdated)

	replacement := policy.NewEntry("web", types.ManagerNPM, nil, nil)
	require.NoError(t, cache.Put(replacement))
	result, ok = cache.Get("web")
	require.True(t, ok)
	assert.Empty(t, result.Outdated, "a write replaces the prior cache wholesale")
}

func TestFileCacheExpiredFileIsMiss(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	policy := testPolicy(clock)
	cache := NewFileCache(t.TempDir(), policy, testLogger())

	require.NoError(t, cache.Put(sampleEntry(policy, "web")))
	clock.Advance(76 * time.Minute)

	_, ok := cache.Get("web")
	assert.False(t, ok)

	_, err := os.Stat(cache.path("web"))
	assert.NoError(t, err, "an expired read leaves the file in place")
}

func TestFileCacheInvalidExpiryIsMiss(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	policy := testPolicy(clock)
	cache := NewFileCache(t.TempDir(), policy, testLogger())

	entry := sampleEntry(policy, "web")
	entry.Timestamp = clock.now.Add(time.Hour)
	entry.ExpiresAt = clock.now.Add(30 * time.Minute)
	require.NoError(t, cache.Put(entry))

	_, ok := cache.Get("web")
	assert.False(t, ok, "expiresAt must be after timestamp")
}

func TestFileCacheCorruptFileIsMiss(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	cache := NewFileCache(t.TempDir(), testPolicy(clock), testLogger())

	require.NoError(t, os.WriteFile(cache.path("web"), []byte("{not json"), 0o644))

	_, ok := cache.Get("web")
	assert.False(t, ok)
}

func TestFileCacheInvalidate(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	policy := testPolicy(clock)
	cache := NewFileCache(t.TempDir(), policy, testLogger())

	require.NoError(t, cache.Put(sampleEntry(policy, "web")))
	require.NoError(t, cache.Invalidate("web"))

	_, ok := cache.Get("web")
	assert.False(t, ok)

	assert.NoError(t, cache.Invalidate("web"), "invalidating twice is a no-op")
}

func TestFileCachePathEscapesProjectID(t *testing.T) {
	cache := NewFileCache("/data/patches", DefaultPolicy(), testLogger())

	assert.Equal(t, "/data/patches/web.json", cache.path("web"))
	assert.Equal(t, "/data/patches/a%2Fb.json", cache.path("a/b"))
	assert.Equal(t, "/data/patches/_...json", cache.path(".."))
}
