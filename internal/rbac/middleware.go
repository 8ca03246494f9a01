package rbac

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireLevel derives the caller's access context and rejects the request when it is
// below level. Handlers behind it still derive their own context per operation.
func RequireLevel(d Deriver, level Level) gin.HandlerFunc {
	return func(c *gin.Context) {
		ac, err := d.Derive(c.Request.Context(), false)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "authorization failed"})
			return
		}
		if err := Require(ac, level); err != nil {
			c.AbortWithStatusJSON(HTTPStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.Next()
	}
}

// HTTPStatus maps an authorization failure to 401 (no session) or 403 (insufficient rights).
func HTTPStatus(err error) int {
	var ue *UnauthorizedError
	if errors.As(err, &ue) {
		if ue.Anonymous {
			return http.StatusUnauthorized
		}
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}
