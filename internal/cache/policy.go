// ABOUTME: Expiry policy for project caches: a base TTL plus uniform random jitter.
// ABOUTME: Jitter keeps many projects from expiring together and triggering a scan storm.

package cache

import (
	"math/rand"
	"time"

	"github.com/jfeddern/PatchRelay/internal/types"
)

const (
	DefaultTTL    = 60 * time.Minute
	DefaultJitter = 15 * time.Minute
)

// Policy stamps new caches with a creation time and an expiry.
// Now and Rand are injectable so expiry can be tested without sleeping.
type Policy struct {
	TTL    time.Duration
	Jitter time.Duration
	Now    func() time.Time
	Rand   func() float64 // uniform in [0, 1)
}

// DefaultPolicy is 60 minutes plus up to 15 minutes of jitter on the wall clock
func DefaultPolicy() Policy {
	return Policy{
		TTL:    DefaultTTL,
		Jitter: DefaultJitter,
		Now:    time.Now,
		Rand:   rand.Float64,
	}
}

func (p Policy) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

// Lifetime draws one TTL in [TTL, TTL+Jitter]
func (p Policy) Lifetime() time.Duration {
	ttl := p.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if p.Jitter <= 0 {
		return ttl
	}
	r := rand.Float64
	if p.Rand != nil {
		r = p.Rand
	}
	return ttl + time.Duration(r()*float64(p.Jitter))
}

// NewEntry builds a cache for one project's scan results, stamped now
func (p Policy) NewEntry(projectID string, manager types.Manager, outdated []types.OutdatedPackage, vulns []types.VulnerabilityInfo) *types.ProjectPatchCache {
	if outdated == nil {
		outdated = []types.OutdatedPackage{}
	}
	if vulns == nil {
		vulns = []types.VulnerabilityInfo{}
	}
	now := p.now()
	return &types.ProjectPatchCache{
		ProjectID:       projectID,
		Manager:         manager,
		Timestamp:       now,
		ExpiresAt:       now.Add(p.Lifetime()),
		Outdated:        outdated,
		Vulnerabilities: vulns,
	}
}
