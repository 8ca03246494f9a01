package auth

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const authorizationHeader = "Authorization"
const bearerPrefix = "Bearer "

// LoadSession verifies the session token, if present, and injects the identity into the
// request context. Missing or invalid tokens leave the request anonymous; access rules are
// applied later by internal/rbac.
func LoadSession(v *Verifier, cookieName string, now func() time.Time) gin.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return func(c *gin.Context) {
		tok := tokenFromRequest(c, cookieName)
		if tok == "" {
			c.Next()
			return
		}

		claims, err := v.Verify(tok, now())
		if err != nil {
			c.Next()
			return
		}

		ctx := WithSession(c.Request.Context(), claims.Subject, claims.SessionID)
		c.Request = c.Request.WithContext(ctx)
		c.Set("external_id", claims.Subject)

		c.Next()
	}
}

// RequireSession rejects anonymous requests. API paths get a 401; pages are redirected
// to the sign-in URL with the original path in redirect_url.
func RequireSession(signInURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := ExternalID(c.Request.Context()); ok {
			c.Next()
			return
		}
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		c.Redirect(http.StatusFound, signInURL+"?redirect_url="+url.QueryEscape(c.Request.URL.RequestURI()))
		c.Abort()
	}
}

func tokenFromRequest(c *gin.Context, cookieName string) string {
	raw := strings.TrimSpace(c.GetHeader(authorizationHeader))
	if strings.HasPrefix(raw, bearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(raw, bearerPrefix))
	}
	if cookieName == "" {
		return ""
	}
	if v, err := c.Cookie(cookieName); err == nil {
		return strings.TrimSpace(v)
	}
	return ""
}
