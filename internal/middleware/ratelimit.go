// Package middleware provides HTTP middleware for the oversight engine.
package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// maxClients caps the number of tracked client IPs so an address sweep
// cannot exhaust memory.
const maxClients = 100_000

// RateLimiter applies a per-client-IP token bucket to incoming requests.
// Agents tend to retry aggressively when an admission fails, so the burst
// absorbs honest retry storms while the steady rate holds.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*tokenBucket
	rate    float64
	burst   float64
}

type tokenBucket struct {
	tokens   float64
	lastSeen time.Time
}

// NewRateLimiter builds a limiter allowing ratePerSec sustained requests
// with the given burst. A background eviction loop runs until ctx is
// cancelled.
func NewRateLimiter(ctx context.Context, ratePerSec, burst int) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*tokenBucket),
		rate:    float64(ratePerSec),
		burst:   float64(burst),
	}
	go rl.evictLoop(ctx)

	return rl
}

// take refills the bucket for the elapsed time and spends one token if
// available. Caller must hold rl.mu.
func (rl *RateLimiter) take(b *tokenBucket, now time.Time) bool {
	b.tokens += now.Sub(b.lastSeen).Seconds() * rl.rate
	if b.tokens > rl.burst {
		b.tokens = rl.burst
	}
	b.lastSeen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--

	return true
}

func (rl *RateLimiter) evictLoop(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	const idleCutoff = 10 * time.Minute

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.mu.Lock()
			for ip, b := range rl.clients {
				if now.Sub(b.lastSeen) > idleCutoff {
					delete(rl.clients, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Handler returns Gin middleware enforcing the limit per client IP.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		// c.ClientIP() cannot be spoofed via X-Forwarded-For here:
		// the router calls SetTrustedProxies(nil).
		ip := c.ClientIP()
		now := time.Now()

		rl.mu.Lock()
		b, ok := rl.clients[ip]
		if !ok {
			if len(rl.clients) >= maxClients {
				rl.mu.Unlock()
				respondError(c, http.StatusTooManyRequests, "rate_limited", "too many clients")

				return
			}

			b = &tokenBucket{tokens: rl.burst, lastSeen: now}
			rl.clients[ip] = b
		}
		allowed := rl.take(b, now)
		rl.mu.Unlock()

		if !allowed {
			respondError(c, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")

			return
		}

		c.Next()
	}
}
