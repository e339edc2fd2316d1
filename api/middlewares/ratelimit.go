package middlewares

import (
	"net/http"
	"time"

	ttlworker "github.com/FloatTech/ttl"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitPerClient limits upload requests per client IP. The 429 it
// returns is one of the statuses the transfer executor classifies as
// retryable, so a throttled client backs off and retries instead of failing
// the file outright.
func RateLimitPerClient(pps float64, burst int) gin.HandlerFunc {
	if burst < 1 {
		burst = 1
	}
	limiters := ttlworker.NewCache[string, *rate.Limiter](10 * time.Minute)
	return func(c *gin.Context) {
		limiter := limiters.Get(c.ClientIP())
		if limiter == nil {
			limiter = rate.NewLimiter(rate.Limit(pps), burst)
			limiters.Set(c.ClientIP(), limiter)
		}
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
