package ratelimit

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"inlet/pkg/metrics"
)

// Middleware guards a route group with the given keyed limiter, keyed by
// client IP. The webhook path does not use it; the ingest pipeline consumes
// its own tokens so the outcome taxonomy stays in one place.
func Middleware(limiter *KeyedLimiter, scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		if clientIP == "" {
			clientIP = c.RemoteIP()
		}

		if !limiter.Allow(clientIP) {
			metrics.RateLimitRequestsTotal.WithLabelValues(scope, "limited").Inc()
			c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.burst))
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", "1")
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":      "rate limit exceeded",
				"error_code": "RATE_LIMITED",
			})
			c.Abort()
			return
		}

		metrics.RateLimitRequestsTotal.WithLabelValues(scope, "allowed").Inc()
		c.Next()
	}
}
