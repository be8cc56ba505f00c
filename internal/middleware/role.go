package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/ecohaven/backend/internal/models"
	"github.com/ecohaven/backend/pkg/response"
)

// RequireRole returns a middleware that allows only the given roles. Call after JWT.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{})
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		s := CurrentSession(c)
		if s == nil {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		if _, ok := allowed[s.Role]; !ok {
			response.Forbidden(c, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireStaff allows any staff variant.
func RequireStaff() gin.HandlerFunc {
	return RequireRole(models.RoleStaff, models.RoleAdmin)
}
