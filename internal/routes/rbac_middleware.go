package routes

import (
	"log/slog"

	"github.com/gin-gonic/gin"
)

// RequirePermission creates middleware that checks for specific permission.
// It must run after AuthMiddleware so the role is in the context.
func RequirePermission(resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := GetUser(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		role := GetRole(c)
		if !getRBAC(c).Can(role, resource, action) {
			slog.Warn("Permission denied",
				"userID", userID,
				"role", role,
				"resource", resource,
				"action", action)
			AbortWithError(c, ErrForbidden)
			return
		}

		c.Next()
	}
}
