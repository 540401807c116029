package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kaito/tubegrab/internal/cache"
	"golang.org/x/time/rate"
)

// GlobalRateLimit applies a process-wide token bucket as cheap overload
// protection in front of every route.
func GlobalRateLimit(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"code":    "RATE_LIMITED",
				"error":   "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}

// ClientRateLimit applies the per-client sliding window from the cache
// layer, keyed by client IP. Used on submission endpoints only.
func ClientRateLimit(c *cache.Cache, limit int, window time.Duration) gin.HandlerFunc {
	return func(gc *gin.Context) {
		allowed, remaining := c.CheckRateLimit(gc.Request.Context(), gc.ClientIP(), limit, window)
		if !allowed {
			// Retry-After takes delta-seconds
			gc.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			gc.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"code":    "RATE_LIMITED",
				"error":   "too many conversion requests, slow down",
			})
			return
		}
		gc.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		gc.Next()
	}
}
