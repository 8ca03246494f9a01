package rbac

import (
	"fmt"
	"strings"
)

// Role is the persisted role of a user record. Keep these stable; they are stored as-is.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

func (r Role) Valid() bool { return r == RoleUser || r == RoleAdmin }

// ParseRole accepts role names case-insensitively.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("rbac: unknown role %q", s)
	}
	return r, nil
}

// Level is the minimum access level an operation requires.
type Level string

const (
	LevelUser   Level = "user"
	LevelAdmin  Level = "admin"
	LevelSystem Level = "system"
)
