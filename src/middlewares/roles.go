package middlewares

import (
	"ams/src/types"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireRoles rejects the request unless the authenticated user holds
// one of the given roles. Runs after AuthMiddleware.
func RequireRoles(roles ...types.Role) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		value, ok := ctx.Get("role")
		if !ok {
			ctx.AbortWithStatus(http.StatusForbidden)
			return
		}
		role, ok := value.(types.Role)
		if !ok {
			ctx.AbortWithStatus(http.StatusForbidden)
			return
		}
		for _, allowed := range roles {
			if role == allowed {
				ctx.Next()
				return
			}
		}
		ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
	}
}
