package api

import (
	"github.com/gin-gonic/gin"

	"github.com/oversightlabs/oversight/internal/httputil"
	"github.com/oversightlabs/oversight/internal/metrics"
)

// Machine-readable error codes carried in the error envelope. Clients branch
// on these rather than on message text.
const (
	ErrCodeInvalidRequest  = "invalid_request"
	ErrCodeNotFound        = "not_found"
	ErrCodeConflict        = "conflict"
	ErrCodeInternalError   = "internal_error"
	ErrCodeUnauthorized    = "unauthorized"
	ErrCodeForbidden       = "forbidden"
	ErrCodeRateLimited     = "rate_limited"
	ErrCodeValidationError = "validation_error"
)

// respondError counts the error by code and writes the shared envelope.
func respondError(c *gin.Context, status int, code, message string) {
	metrics.ErrorsTotal.WithLabelValues(code).Inc()
	httputil.RespondError(c, status, code, message)
}
