package users

import (
	"context"
	"time"

	"zephyr-lounge/internal/rbac"
)

// Repository is the persistence contract for user records. Implementations return
// ErrNotFound and ErrDuplicate; authorization is applied by Service, never here.
type Repository interface {
	Create(ctx context.Context, in CreateInput, now time.Time) (User, error)
	GetByID(ctx context.Context, id int64) (User, error)
	GetByExternalID(ctx context.Context, externalID string) (User, error)
	// UpdateRole returns the role held before the update alongside the updated record.
	UpdateRole(ctx context.Context, externalID string, role rbac.Role, now time.Time) (rbac.Role, User, error)
	Delete(ctx context.Context, externalID string) error
}
