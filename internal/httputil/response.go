// Package httputil provides shared HTTP response helpers.
package httputil

import "github.com/gin-gonic/gin"

// errorBody is the envelope every error response uses, from middleware
// rejections to handler failures.
type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// RespondError writes the standard JSON error envelope and aborts the
// request. The request ID is included when the middleware has set one, so
// a reviewer can quote it when reporting a problem.
func RespondError(c *gin.Context, status int, code, message string) {
	body := errorBody{
		Code:    code,
		Message: message,
	}
	if rid, ok := c.Get("request_id"); ok {
		body.RequestID, _ = rid.(string)
	}

	c.AbortWithStatusJSON(status, body)
}
