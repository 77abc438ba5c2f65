package middleware

import (
	"github.com/gin-gonic/gin"
	ierr "github.com/planpilot/planpilot/internal/errors"
	"github.com/planpilot/planpilot/internal/ratelimit"
)

// RateLimitMiddleware applies the shared fixed-window limiter keyed by
// client IP. Rejections flow through the error handler as 429s.
func RateLimitMiddleware(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := limiter.Check(c.Request.Context(), c.ClientIP()); err != nil {
			c.Error(err)
			c.Abort()
			return
		}
		c.Next()
	}
}

// LocalRateLimitMiddleware applies an in-process token-bucket limiter keyed
// by client IP. Used on the auth endpoints as a brute-force guard that keeps
// working even when the shared store is down.
func LocalRateLimitMiddleware(limiter *ratelimit.LocalLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.Error(ierr.NewError("rate limit exceeded").
				WithHint("Too many requests. Please try again later.").
				Mark(ierr.ErrRateLimitExceeded))
			c.Abort()
			return
		}
		c.Next()
	}
}
