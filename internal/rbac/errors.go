package rbac

import "errors"

var ErrUnauthorized = errors.New("unauthorized")

// UnauthorizedError is returned by the authorization layer. Anonymous tells the HTTP
// boundary whether the caller had no session at all (401) or lacked rights (403).
type UnauthorizedError struct {
	Message   string
	Anonymous bool
}

func (e *UnauthorizedError) Error() string {
	if e.Message == "" {
		return "Unauthorized"
	}
	return e.Message
}

func (e *UnauthorizedError) Is(target error) bool { return target == ErrUnauthorized }

func unauthorized(ac AccessContext, msg string) error {
	return &UnauthorizedError{Message: msg, Anonymous: !ac.IsSystemCall && ac.CallerIdentity == ""}
}
