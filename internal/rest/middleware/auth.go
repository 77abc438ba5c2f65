package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/planpilot/planpilot/internal/auth"
	ierr "github.com/planpilot/planpilot/internal/errors"
	"github.com/planpilot/planpilot/internal/service"
	"github.com/planpilot/planpilot/internal/types"
)

// AuthMiddleware validates the bearer token and resolves the caller into the
// request context. Requests without a valid token never reach the handlers.
func AuthMiddleware(provider *auth.Provider, authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(types.HeaderAuthorization)
		if !strings.HasPrefix(header, "Bearer ") {
			c.Error(ierr.NewError("missing authorization header").
				WithHint("Provide a bearer token in the Authorization header").
				Mark(ierr.ErrPermissionDenied))
			c.Abort()
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")

		claims, err := provider.ValidateToken(c.Request.Context(), token)
		if err != nil {
			c.Error(err)
			c.Abort()
			return
		}

		u, err := authService.GetUser(c.Request.Context(), claims.UserID)
		if err != nil {
			c.Error(ierr.WithError(err).
				WithHint("Token refers to an unknown user").
				Mark(ierr.ErrPermissionDenied))
			c.Abort()
			return
		}

		ctx := context.WithValue(c.Request.Context(), types.CtxUserID, u.ID)
		ctx = context.WithValue(ctx, types.CtxIsAdmin, u.IsAdmin || provider.IsAdminUser(u.ID))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// AdminOnly rejects callers that are not administrators. Must run after
// AuthMiddleware.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !types.IsAdmin(c.Request.Context()) {
			c.Error(ierr.NewError("admin access required").
				WithHint("This operation requires administrator access").
				Mark(ierr.ErrPermissionDenied))
			c.Abort()
			return
		}
		c.Next()
	}
}
