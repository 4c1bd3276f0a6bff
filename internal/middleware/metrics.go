package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edustack/edustack/internal/telemetry"
)

// noRouteLabel caps label cardinality: unmatched requests (404/405) all share
// one series instead of minting one per probed URL.
const noRouteLabel = "<no-route>"

// MetricsMiddleware records a request counter and latency histogram for every
// request. The path label is the matched route template (c.FullPath), never
// the raw URL. Register after gin.Recovery so panics still produce a 500
// sample.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = noRouteLabel
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		telemetry.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		telemetry.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
