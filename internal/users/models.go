package users

import (
	"errors"
	"time"

	"zephyr-lounge/internal/rbac"
)

// User is the local record of an identity-provider account.
//
// Invariants:
// - ExternalID is unique across records.
// - Role changes require admin or system access.
type User struct {
	ID         int64     `json:"id"`
	ExternalID string    `json:"externalIdentityId"`
	Identifier string    `json:"identifier"`
	Role       rbac.Role `json:"role"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type CreateInput struct {
	ExternalID string
	Identifier string
	// Role defaults to USER.
	Role rbac.Role
}

var (
	ErrNotFound        = errors.New("user not found")
	ErrDuplicate       = errors.New("user already exists")
	ErrInvalidArgument = errors.New("invalid argument")
)

func (in CreateInput) normalize() (CreateInput, error) {
	if in.ExternalID == "" || in.Identifier == "" {
		return CreateInput{}, ErrInvalidArgument
	}
	if in.Role == "" {
		in.Role = rbac.RoleUser
	}
	if !in.Role.Valid() {
		return CreateInput{}, ErrInvalidArgument
	}
	return in, nil
}
