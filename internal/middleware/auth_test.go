package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oversightlabs/oversight/internal/middleware"
)

type mockOrgLookup struct {
	validKeys map[string]string
	calls     int
}

func (m *mockOrgLookup) GetOrgByAPIKey(_ context.Context, apiKey string) (string, error) {
	m.calls++
	if oid, ok := m.validKeys[apiKey]; ok {
		return oid, nil
	}
	return "", errors.New("invalid key")
}

// authProbe builds a router whose handler records the org_id the middleware
// stored on the context.
func authProbe(lookup middleware.OrgLookup, gotOrg *string) *gin.Engine {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	r := gin.New()
	r.Use(middleware.AuthMiddleware(lookup, log))
	r.GET("/probe", func(c *gin.Context) {
		*gotOrg = c.GetString("org_id")
		c.Status(http.StatusOK)
	})

	return r
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		authHeader string
		wantCode   int
		wantOrg    string
	}{
		{name: "valid token", authHeader: "Bearer good-key", wantCode: http.StatusOK, wantOrg: "org-1"},
		{name: "missing header", wantCode: http.StatusUnauthorized},
		{name: "invalid token", authHeader: "Bearer bad-key", wantCode: http.StatusUnauthorized},
		{name: "no bearer prefix", authHeader: "good-key", wantCode: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := &mockOrgLookup{validKeys: map[string]string{"good-key": "org-1"}}

			var gotOrg string
			r := authProbe(lookup, &gotOrg)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/probe", http.NoBody)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			r.ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}
			if gotOrg != tt.wantOrg {
				t.Errorf("org_id = %q, want %q", gotOrg, tt.wantOrg)
			}
		})
	}
}

func TestCachedOrgLookup(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inner := &mockOrgLookup{validKeys: map[string]string{"k1": "org-a"}}
	cached := middleware.NewCachedOrgLookup(ctx, inner)

	for range 3 {
		oid, err := cached.GetOrgByAPIKey(ctx, "k1")
		if err != nil {
			t.Fatalf("GetOrgByAPIKey: %v", err)
		}
		if oid != "org-a" {
			t.Fatalf("expected org-a, got %q", oid)
		}
	}

	if inner.calls != 1 {
		t.Errorf("expected 1 inner lookup, got %d", inner.calls)
	}

	// Negative caching: repeated bad keys hit the inner lookup once.
	for range 3 {
		if _, err := cached.GetOrgByAPIKey(ctx, "bad"); err == nil {
			t.Fatal("expected error for unknown key")
		}
	}

	if inner.calls != 2 {
		t.Errorf("expected 2 inner lookups after negative cache, got %d", inner.calls)
	}
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "well formed", header: "Bearer abc123", want: "abc123"},
		{name: "bare token", header: "abc123"},
		{name: "no header"},
		{name: "empty token", header: "Bearer "},
		{name: "lowercase scheme", header: "bearer abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			if tt.header != "" {
				c.Request.Header.Set("Authorization", tt.header)
			}

			if got := middleware.ExtractBearerToken(c); got != tt.want {
				t.Errorf("ExtractBearerToken(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}
