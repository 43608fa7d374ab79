package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oversightlabs/oversight/internal/metrics"
)

// PrometheusMiddleware records per-route request counts and latency.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		// Label by route pattern, not raw path: request IDs in the path
		// would explode label cardinality.
		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		metrics.RequestDuration.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
		metrics.RequestsTotal.WithLabelValues(c.Request.Method, route, status).Inc()
	}
}
