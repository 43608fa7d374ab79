package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// RequestIDKey is the gin context key holding the canonical request ID.
	RequestIDKey = "request_id"

	// RequestIDHeader propagates the request ID to clients.
	RequestIDHeader = "X-Request-ID"
)

// RequestID assigns every request a fresh server-generated UUID. A
// client-supplied X-Request-ID is kept as a correlation field only; audit
// records must never carry an attacker-chosen identifier as canonical.
func RequestID(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.New().String()

		if clientID := c.GetHeader(RequestIDHeader); clientID != "" {
			log.WithFields(logrus.Fields{
				"request_id":        id,
				"client_request_id": clientID,
			}).Debug("client supplied request id recorded as correlation field")
			c.Set("client_request_id", clientID)
		}

		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
