package ratelimit

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fitspot/pkg/logger"
)

// Middleware enforces the limiter on a route group. Limiter failures fail
// open: dropping legitimate traffic over a Redis hiccup is worse than
// briefly not limiting.
func Middleware(limiter *Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := limiter.IsAllowed(c.Request.Context(), c.ClientIP())
		if err != nil {
			logger.Get().Warn("rate limit check failed, allowing request",
				"client_ip", c.ClientIP(),
				"error", err.Error(),
			)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetTime, 10))

		if !result.Allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"status":      "error",
				"status_code": http.StatusTooManyRequests,
				"message":     "Rate limit exceeded, try again later",
			})
			return
		}

		c.Next()
	}
}
