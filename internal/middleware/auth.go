package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// minAuthLatency pads rejected auth responses so response timing cannot be
// used to tell a nearly-valid key from a random one.
const minAuthLatency = 50 * time.Millisecond

// OrgLookup resolves an API key to the owning organization.
type OrgLookup interface {
	GetOrgByAPIKey(ctx context.Context, apiKey string) (string, error)
}

// AuthMiddleware authenticates requests by Bearer token and stores the
// resolved org_id on the context. An optional BruteForceGuard tracks
// failures per key.
func AuthMiddleware(lookup OrgLookup, log *logrus.Logger, guards ...*BruteForceGuard) gin.HandlerFunc {
	var guard *BruteForceGuard
	if len(guards) > 0 {
		guard = guards[0]
	}

	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			if c.Writer.Status() != http.StatusUnauthorized {
				return
			}
			if remaining := minAuthLatency - time.Since(start); remaining > 0 {
				time.Sleep(remaining)
			}
		}()

		apiKey := ExtractBearerToken(c)
		if apiKey == "" {
			respondError(c, http.StatusUnauthorized, "unauthorized", "missing or invalid authorization header")
			return
		}

		orgID, err := lookup.GetOrgByAPIKey(c.Request.Context(), apiKey)
		if err != nil {
			prefix := apiKey
			if len(prefix) > 4 {
				prefix = prefix[:4] + "..."
			}
			log.WithFields(logrus.Fields{
				"client_ip":  c.ClientIP(),
				"method":     c.Request.Method,
				"path":       c.Request.URL.Path,
				"user_agent": c.Request.UserAgent(),
				"request_id": c.GetString(RequestIDKey),
				"key_prefix": prefix,
			}).Warn("authentication failed: invalid api key")

			if guard != nil {
				guard.RecordFailure(apiKey)
			}

			respondError(c, http.StatusUnauthorized, "unauthorized", "invalid api key")
			return
		}

		if guard != nil {
			guard.ResetKey(apiKey)
		}

		c.Set("org_id", orgID)
		c.Next()
	}
}

// ExtractBearerToken returns the API key from the Authorization header, or
// "" when the header is absent or not a Bearer scheme.
func ExtractBearerToken(c *gin.Context) string {
	token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok {
		return ""
	}
	return token
}
