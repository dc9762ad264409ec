package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/DiaryHub/internal/ratelimit"
)

// Throttle counts one action per request against the caller's budget. A nil limiter
// lets every request through.
func Throttle(limiter *ratelimit.Manager, action ratelimit.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		scope := Scope(c)
		decision, result := limiter.Take(c.Request.Context(), action, ratelimit.Caller{
			UID:   scope.UID(),
			Admin: scope.IsAdmin(),
			IP:    c.ClientIP(),
		})
		if decision.Key != "" {
			c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Rule.Limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		}
		if !result.Allowed {
			wait := int(time.Until(result.Reset).Round(time.Second).Seconds())
			c.Header("Retry-After", strconv.Itoa(max(wait, 1)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many " + string(action) + " requests"})
			return
		}
		c.Next()
	}
}
