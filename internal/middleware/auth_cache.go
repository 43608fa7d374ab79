package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"
)

const (
	orgCacheTTL      = 5 * time.Minute
	missCacheTTL     = 30 * time.Second
	maxCacheEntries  = 10000
	cacheSweepPeriod = 60 * time.Second
)

// errCachedNotFound is returned when a recent lookup already failed for
// the same key.
var errCachedNotFound = errors.New("organization not found (cached)")

// lookupResult caches either a resolved org ID or a miss. Misses expire
// quickly so a key provisioned after a failed probe works within seconds.
type lookupResult struct {
	orgID     string
	miss      bool
	expiresAt time.Time
}

// CachedOrgLookup fronts an OrgLookup with a bounded in-memory cache keyed
// by API key digest, keeping the hot auth path off the database.
type CachedOrgLookup struct {
	inner OrgLookup
	mu    sync.RWMutex
	cache map[string]lookupResult
}

// NewCachedOrgLookup wraps inner with a cache whose sweep goroutine runs
// until ctx is cancelled.
func NewCachedOrgLookup(ctx context.Context, inner OrgLookup) *CachedOrgLookup {
	c := &CachedOrgLookup{
		inner: inner,
		cache: make(map[string]lookupResult),
	}
	go c.sweep(ctx)
	return c
}

// GetOrgByAPIKey returns the cached org ID for the key, consulting the
// inner lookup on a miss or expired entry.
func (c *CachedOrgLookup) GetOrgByAPIKey(ctx context.Context, apiKey string) (string, error) {
	sum := sha256.Sum256([]byte(apiKey))
	digest := hex.EncodeToString(sum[:])

	c.mu.RLock()
	res, ok := c.cache[digest]
	c.mu.RUnlock()

	if ok && time.Now().Before(res.expiresAt) {
		if res.miss {
			return "", errCachedNotFound
		}
		return res.orgID, nil
	}

	orgID, err := c.inner.GetOrgByAPIKey(ctx, apiKey)
	if err != nil {
		c.put(digest, lookupResult{miss: true, expiresAt: time.Now().Add(missCacheTTL)})
		return "", err
	}

	c.put(digest, lookupResult{orgID: orgID, expiresAt: time.Now().Add(orgCacheTTL)})
	return orgID, nil
}

func (c *CachedOrgLookup) put(digest string, res lookupResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.cache) >= maxCacheEntries {
		c.pruneLocked(time.Now())
		// Still full after pruning: drop arbitrary entries. They will be
		// re-fetched on demand.
		for k := range c.cache {
			if len(c.cache) < maxCacheEntries {
				break
			}
			delete(c.cache, k)
		}
	}
	c.cache[digest] = res
}

func (c *CachedOrgLookup) sweep(ctx context.Context) {
	ticker := time.NewTicker(cacheSweepPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.mu.Lock()
			c.pruneLocked(now)
			c.mu.Unlock()
		}
	}
}

// pruneLocked removes expired entries. Caller must hold c.mu.
func (c *CachedOrgLookup) pruneLocked(now time.Time) {
	for k, v := range c.cache {
		if !now.Before(v.expiresAt) {
			delete(c.cache, k)
		}
	}
}
