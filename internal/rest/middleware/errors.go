package middleware

import (
	"github.com/gin-gonic/gin"
	ierr "github.com/planpilot/planpilot/internal/errors"
	"github.com/planpilot/planpilot/internal/logger"
)

// ErrorHandler converts errors attached to the gin context into the wire
// error envelope with the status code of their taxonomy mark. Handlers only
// call c.Error(err); mapping lives here.
func ErrorHandler(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		status := ierr.HTTPStatusFromErr(err)

		if status >= 500 {
			log.WithContext(c.Request.Context()).Errorw("request failed",
				"status", status, "error", err)
		}

		c.AbortWithStatusJSON(status, ierr.NewErrorResponse(err))
	}
}
