package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/oversightlabs/oversight/internal/httputil"
)

// respondError writes the standard error envelope. Middleware responses
// use the same shape as handler responses so clients parse one format.
func respondError(c *gin.Context, code int, errCode, message string) {
	httputil.RespondError(c, code, errCode, message)
}
