package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studybase-api/internal/service"
)

// unmatchedRoute labels requests no route matched, keeping path cardinality bounded.
const unmatchedRoute = "unmatched"

var unobservedRoutes = map[string]struct{}{
	"/metrics": {},
	"/health":  {},
	"/ready":   {},
}

// Metrics records latency and status per route template. Scrapes and health checks are skipped.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		route := c.FullPath()
		if _, skip := unobservedRoutes[route]; skip {
			c.Next()
			return
		}
		if route == "" {
			route = unmatchedRoute
		}

		start := time.Now()
		c.Next()
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
