package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/planpilot/planpilot/internal/types"
)

// RequestID propagates the caller's X-Request-ID, generating one when absent,
// and stores it in the request context for logging.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(types.HeaderRequestID)
		if requestID == "" {
			requestID = types.GenerateUUID()
		}

		ctx := context.WithValue(c.Request.Context(), types.CtxRequestID, requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Header(types.HeaderRequestID, requestID)

		c.Next()
	}
}
