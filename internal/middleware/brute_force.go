package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	maxAuthFailures    = 5
	authFailureWindow  = 15 * time.Minute
	lockoutDuration    = 5 * time.Minute
	guardSweepInterval = 60 * time.Second
	guardMaxTracked    = 10000
)

type authFailure struct {
	count       int
	windowStart time.Time
	lockedUntil time.Time
}

// BruteForceGuard counts failed API key authentications per key hash and
// locks out keys that fail too often within the tracking window. Review
// decisions carry real authority, so a guessed key is worth slowing down.
type BruteForceGuard struct {
	mu       sync.Mutex
	failures map[string]*authFailure
	log      *logrus.Logger
}

// NewBruteForceGuard returns a guard whose background sweep runs until
// ctx is cancelled.
func NewBruteForceGuard(ctx context.Context, log *logrus.Logger) *BruteForceGuard {
	g := &BruteForceGuard{
		failures: make(map[string]*authFailure),
		log:      log,
	}
	go g.sweep(ctx)
	return g
}

// Keys are tracked by digest so raw credentials never sit in memory
// longer than the request that carried them.
func hashAPIKey(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:])
}

// IsBlocked reports whether the key is currently locked out.
func (g *BruteForceGuard) IsBlocked(apiKey string) bool {
	digest := hashAPIKey(apiKey)
	now := time.Now()

	g.mu.Lock()
	defer g.mu.Unlock()

	f, ok := g.failures[digest]
	return ok && now.Before(f.lockedUntil)
}

// RecordFailure counts a failed authentication for the key. Crossing the
// failure threshold inside the window locks the key out.
func (g *BruteForceGuard) RecordFailure(apiKey string) {
	digest := hashAPIKey(apiKey)
	now := time.Now()

	g.mu.Lock()
	defer g.mu.Unlock()

	f, ok := g.failures[digest]
	if !ok || now.Sub(f.windowStart) > authFailureWindow {
		g.failures[digest] = &authFailure{count: 1, windowStart: now}
		return
	}

	f.count++
	if f.count >= maxAuthFailures && !now.Before(f.lockedUntil) {
		f.lockedUntil = now.Add(lockoutDuration)
		g.log.WithFields(logrus.Fields{
			"key_hash": digest[:16],
			"failures": f.count,
		}).Warn("api key locked out after repeated auth failures")
	}
}

// ResetKey drops failure tracking for a key after a successful auth.
func (g *BruteForceGuard) ResetKey(apiKey string) {
	digest := hashAPIKey(apiKey)
	g.mu.Lock()
	delete(g.failures, digest)
	g.mu.Unlock()
}

func (g *BruteForceGuard) sweep(ctx context.Context) {
	ticker := time.NewTicker(guardSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.prune(time.Now())
		}
	}
}

// prune drops expired lockouts and stale windows, then trims the map back
// under guardMaxTracked so an attacker rotating keys cannot grow it unbounded.
func (g *BruteForceGuard) prune(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for digest, f := range g.failures {
		lockExpired := !f.lockedUntil.IsZero() && !now.Before(f.lockedUntil)
		windowStale := now.Sub(f.windowStart) >= authFailureWindow
		if lockExpired || windowStale {
			delete(g.failures, digest)
		}
	}

	excess := len(g.failures) - guardMaxTracked
	if excess <= 0 {
		return
	}
	type aged struct {
		digest string
		start  time.Time
	}
	all := make([]aged, 0, len(g.failures))
	for digest, f := range g.failures {
		all = append(all, aged{digest, f.windowStart})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].start.Before(all[j].start) })
	for _, a := range all[:excess] {
		delete(g.failures, a.digest)
	}
}

// BruteForceMiddleware rejects requests bearing a locked-out API key before
// the org lookup runs. Requests with no token pass through; auth handles those.
func BruteForceMiddleware(guard *BruteForceGuard) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := ExtractBearerToken(c)
		if apiKey == "" {
			c.Next()
			return
		}
		if guard.IsBlocked(apiKey) {
			respondError(c, http.StatusTooManyRequests, "rate_limited", "too many failed authentication attempts")
			c.Abort()
			return
		}

		c.Next()
	}
}
