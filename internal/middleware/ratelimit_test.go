package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/oversightlabs/oversight/internal/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func limitedRouter(rl *middleware.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(rl.Handler())
	r.GET("/api/v1/requests", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func hitFrom(r *gin.Engine, addr string) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/requests", http.NoBody)
	req.RemoteAddr = addr
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimiter_BurstThenBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := limitedRouter(middleware.NewRateLimiter(ctx, 1, 2))

	wantCodes := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	for i, want := range wantCodes {
		if got := hitFrom(r, "10.0.0.9:4000"); got != want {
			t.Fatalf("request %d: got %d, want %d", i, got, want)
		}
	}
}

func TestRateLimiter_ClientsDoNotShareBuckets(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := limitedRouter(middleware.NewRateLimiter(ctx, 1, 1))

	if got := hitFrom(r, "10.0.0.1:4000"); got != http.StatusOK {
		t.Fatalf("first client: got %d, want 200", got)
	}
	// The first client spent its only token; the second has its own.
	if got := hitFrom(r, "10.0.0.2:4000"); got != http.StatusOK {
		t.Fatalf("second client: got %d, want 200", got)
	}
	if got := hitFrom(r, "10.0.0.1:4000"); got != http.StatusTooManyRequests {
		t.Fatalf("exhausted client: got %d, want 429", got)
	}
}

func TestRateLimiter_RefillRestoresTokens(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Rate high enough that any measurable elapsed time refills a token.
	r := limitedRouter(middleware.NewRateLimiter(ctx, 1_000_000, 2))

	for range 2 {
		hitFrom(r, "10.0.0.7:4000")
	}
	if got := hitFrom(r, "10.0.0.7:4000"); got != http.StatusOK {
		t.Fatalf("after refill: got %d, want 200", got)
	}
}
