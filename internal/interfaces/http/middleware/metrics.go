package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPMetrics is satisfied by prometheus.ChemMetrics.
type HTTPMetrics interface {
	ObserveHTTP(method, route string, status int, elapsed time.Duration)
	InFlight(method string) func()
}

// Metrics records request counts and latency labelled by route template, so
// path parameters never become label values. Unmatched routes share one
// label.
func Metrics(m HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		done := m.InFlight(c.Request.Method)
		defer done()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
