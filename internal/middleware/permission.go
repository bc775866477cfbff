package middleware

import (
	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/team-chat-api/internal/errors"
	"github.com/yukikurage/team-chat-api/internal/permissions"
)

// RequirePermission aborts with 403 unless the resolved user's role
// holds the given permission. Ownership-scoped grants are evaluated in
// the services, where the resource owner is known.
func RequirePermission(engine *permissions.Engine, permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, exists := GetCurrentUser(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		if !engine.HasPermission(user.Role, permission, nil) {
			apierrors.Forbidden(c, "")
			c.Abort()
			return
		}

		c.Next()
	}
}
