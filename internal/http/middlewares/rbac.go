package middlewares

import (
	"net/http"

	"github.com/geocoder89/workerhub/internal/domain/account"
	"github.com/gin-gonic/gin"
)

// RequireRole must run after RequireAuth.
func RequireRole(required account.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFromContext(c)
		if !ok {
			abortUnauthorized(c, "Missing identity context")
			return
		}

		if p.Role() != required {
			abort(c, http.StatusForbidden, "permission_denied", "You do not have permission to perform this action.")
			return
		}

		c.Next()
	}
}
