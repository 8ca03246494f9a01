package rbac

import (
	"context"
	"fmt"
)

// SessionProvider resolves the external identity id of the current caller.
type SessionProvider interface {
	ExternalID(ctx context.Context) (string, bool)
}

// RoleResolver looks up the stored role for an external identity id.
// ok is false when no local record exists yet.
type RoleResolver interface {
	RoleOf(ctx context.Context, externalID string) (role Role, ok bool, err error)
}

// AccessContext describes who is calling. It is derived per operation and passed by value.
//
// Invariant: IsSystemCall implies IsAdmin.
type AccessContext struct {
	IsSystemCall   bool
	IsAdmin        bool
	CallerIdentity string
	CallerRole     Role
}

// SystemContext is the context of trusted internal callers (webhooks, jobs).
func SystemContext() AccessContext {
	return AccessContext{IsSystemCall: true, IsAdmin: true}
}

// Deriver builds AccessContexts from the session and the stored role.
type Deriver struct {
	Sessions SessionProvider
	Roles    RoleResolver
}

// Derive returns the caller's AccessContext. A session without a local record is a
// plain authenticated caller, not an error.
func (d Deriver) Derive(ctx context.Context, isSystemCall bool) (AccessContext, error) {
	if isSystemCall {
		return SystemContext(), nil
	}
	if d.Sessions == nil {
		return AccessContext{}, nil
	}
	externalID, ok := d.Sessions.ExternalID(ctx)
	if !ok || externalID == "" {
		return AccessContext{}, nil
	}

	ac := AccessContext{CallerIdentity: externalID}
	if d.Roles == nil {
		return ac, nil
	}
	role, found, err := d.Roles.RoleOf(ctx, externalID)
	if err != nil {
		return AccessContext{}, fmt.Errorf("rbac: resolve role: %w", err)
	}
	if found {
		ac.CallerRole = role
		ac.IsAdmin = role == RoleAdmin
	}
	return ac, nil
}

// Require fails with *UnauthorizedError when ac does not meet level.
func Require(ac AccessContext, level Level) error {
	switch level {
	case LevelSystem:
		if !ac.IsSystemCall {
			return unauthorized(ac, "System access required")
		}
	case LevelAdmin:
		if !ac.IsAdmin && !ac.IsSystemCall {
			return unauthorized(ac, "Admin access required")
		}
	case LevelUser:
		if ac.CallerIdentity == "" && !ac.IsSystemCall {
			return unauthorized(ac, "Authentication required")
		}
	default:
		return fmt.Errorf("rbac: unknown access level %q", level)
	}
	return nil
}

// CanAccessUser reports whether ac may read or modify the record of targetExternalID.
func CanAccessUser(ac AccessContext, targetExternalID string) bool {
	if ac.IsSystemCall || ac.IsAdmin {
		return true
	}
	return ac.CallerIdentity != "" && ac.CallerIdentity == targetExternalID
}

// RequireAccessTo combines CanAccessUser with the error used by per-record operations.
func RequireAccessTo(ac AccessContext, targetExternalID string) error {
	if !CanAccessUser(ac, targetExternalID) {
		return unauthorized(ac, "Access denied")
	}
	return nil
}
