package auth

import "github.com/golang-jwt/jwt/v5"

// SessionClaims is the session token shape issued by the identity provider.
// Subject carries the external identity id; nothing else is trusted for authorization.
type SessionClaims struct {
	jwt.RegisteredClaims

	SessionID string `json:"sid,omitempty"`
}
