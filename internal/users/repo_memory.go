package users

import (
	"context"
	"sync"
	"time"

	"zephyr-lounge/internal/rbac"
)

// MemoryRepo is an in-memory Repository useful for tests.
// It is not intended for production use.
type MemoryRepo struct {
	mu     sync.Mutex
	nextID int64
	byExt  map[string]User
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byExt: map[string]User{}}
}

func (r *MemoryRepo) Create(_ context.Context, in CreateInput, now time.Time) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byExt[in.ExternalID]; ok {
		return User{}, ErrDuplicate
	}
	r.nextID++
	u := User{
		ID:         r.nextID,
		ExternalID: in.ExternalID,
		Identifier: in.Identifier,
		Role:       in.Role,
		CreatedAt:  now.UTC(),
		UpdatedAt:  now.UTC(),
	}
	r.byExt[u.ExternalID] = u
	return u, nil
}

func (r *MemoryRepo) GetByID(_ context.Context, id int64) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byExt {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *MemoryRepo) GetByExternalID(_ context.Context, externalID string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byExt[externalID]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (r *MemoryRepo) UpdateRole(_ context.Context, externalID string, role rbac.Role, now time.Time) (rbac.Role, User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byExt[externalID]
	if !ok {
		return "", User{}, ErrNotFound
	}
	prev := u.Role
	u.Role = role
	u.UpdatedAt = now.UTC()
	r.byExt[externalID] = u
	return prev, u, nil
}

func (r *MemoryRepo) Delete(_ context.Context, externalID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byExt[externalID]; !ok {
		return ErrNotFound
	}
	delete(r.byExt, externalID)
	return nil
}

func (r *MemoryRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byExt)
}
