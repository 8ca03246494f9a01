package users

import (
	"context"
	"errors"
	"time"

	"zephyr-lounge/internal/audit"
	"zephyr-lounge/internal/rbac"
	"zephyr-lounge/pkg/logger"
)

// Service exposes user-record operations. Every operation derives a fresh access
// context, checks the required level and, for per-record operations, ownership,
// before touching the repository.
type Service struct {
	repo     Repository
	sessions rbac.SessionProvider
	audit    *audit.Service

	// Now is injectable for deterministic tests.
	Now func() time.Time
}

func NewService(repo Repository, sessions rbac.SessionProvider, auditSvc *audit.Service) *Service {
	return &Service{repo: repo, sessions: sessions, audit: auditSvc, Now: time.Now}
}

// Roles adapts the repository to rbac.RoleResolver.
func (s *Service) Roles() rbac.RoleResolver { return roleResolver{repo: s.repo} }

// Deriver builds access contexts against this service's session provider and store.
func (s *Service) Deriver() rbac.Deriver {
	return rbac.Deriver{Sessions: s.sessions, Roles: s.Roles()}
}

func (s *Service) access(ctx context.Context, isSystemCall bool) (rbac.AccessContext, error) {
	return s.Deriver().Derive(ctx, isSystemCall)
}

// CreateUserSystem creates a record without authorization. Only trusted callers that
// already established system access may use it.
func (s *Service) CreateUserSystem(ctx context.Context, in CreateInput) (User, error) {
	in, err := in.normalize()
	if err != nil {
		return User{}, err
	}
	u, err := s.repo.Create(ctx, in, s.Now())
	if err != nil {
		return User{}, err
	}
	s.record(ctx, func(a *audit.Service) error {
		return a.LogUserCreated(ctx, audit.SystemActor, u.ExternalID, u.Identifier)
	})
	return u, nil
}

func (s *Service) CreateUser(ctx context.Context, in CreateInput, isSystemCall bool) (User, error) {
	ac, err := s.access(ctx, isSystemCall)
	if err != nil {
		return User{}, err
	}
	if err := rbac.Require(ac, rbac.LevelSystem); err != nil {
		return User{}, err
	}
	return s.CreateUserSystem(ctx, in)
}

func (s *Service) GetUserByExternalID(ctx context.Context, externalID string, isSystemCall bool) (User, error) {
	if externalID == "" {
		return User{}, ErrInvalidArgument
	}
	ac, err := s.access(ctx, isSystemCall)
	if err != nil {
		return User{}, err
	}
	if err := rbac.RequireAccessTo(ac, externalID); err != nil {
		return User{}, err
	}
	return s.repo.GetByExternalID(ctx, externalID)
}

// GetUserByID checks ownership against the loaded record, so a caller probing ids it
// does not own gets the same error whether or not the id exists.
func (s *Service) GetUserByID(ctx context.Context, id int64, isSystemCall bool) (User, error) {
	if id <= 0 {
		return User{}, ErrInvalidArgument
	}
	ac, err := s.access(ctx, isSystemCall)
	if err != nil {
		return User{}, err
	}
	if err := rbac.Require(ac, rbac.LevelUser); err != nil {
		return User{}, err
	}
	u, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) && !ac.IsAdmin {
		return User{}, rbac.RequireAccessTo(ac, "")
	}
	if err != nil {
		return User{}, err
	}
	if err := rbac.RequireAccessTo(ac, u.ExternalID); err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *Service) UpdateUserRole(ctx context.Context, externalID string, role rbac.Role, isSystemCall bool) (User, error) {
	if externalID == "" || !role.Valid() {
		return User{}, ErrInvalidArgument
	}
	ac, err := s.access(ctx, isSystemCall)
	if err != nil {
		return User{}, err
	}
	if err := rbac.Require(ac, rbac.LevelAdmin); err != nil {
		return User{}, err
	}

	prev, u, err := s.repo.UpdateRole(ctx, externalID, role, s.Now())
	if err != nil {
		return User{}, err
	}
	s.record(ctx, func(a *audit.Service) error {
		return a.LogRoleChanged(ctx, actorOf(ac), string(ac.CallerRole), externalID, string(prev), string(role))
	})
	return u, nil
}

// UserExists answers false for callers that may not see the record.
func (s *Service) UserExists(ctx context.Context, externalID string, isSystemCall bool) (bool, error) {
	if externalID == "" {
		return false, nil
	}
	ac, err := s.access(ctx, isSystemCall)
	if err != nil {
		return false, err
	}
	if !rbac.CanAccessUser(ac, externalID) {
		return false, nil
	}
	_, err = s.repo.GetByExternalID(ctx, externalID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) DeleteUser(ctx context.Context, externalID string, isSystemCall bool) error {
	if externalID == "" {
		return ErrInvalidArgument
	}
	ac, err := s.access(ctx, isSystemCall)
	if err != nil {
		return err
	}
	if err := rbac.Require(ac, rbac.LevelUser); err != nil {
		return err
	}
	if err := rbac.RequireAccessTo(ac, externalID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, externalID); err != nil {
		return err
	}
	s.record(ctx, func(a *audit.Service) error {
		return a.LogUserDeleted(ctx, actorOf(ac), string(ac.CallerRole), externalID)
	})
	return nil
}

// record writes an audit event; failures are logged and never fail the operation.
func (s *Service) record(ctx context.Context, fn func(a *audit.Service) error) {
	if s.audit == nil {
		return
	}
	if err := fn(s.audit); err != nil {
		logger.From(ctx).Warn("audit append failed", "err", err)
	}
}

func actorOf(ac rbac.AccessContext) string {
	if ac.IsSystemCall {
		return audit.SystemActor
	}
	return ac.CallerIdentity
}

type roleResolver struct {
	repo Repository
}

func (r roleResolver) RoleOf(ctx context.Context, externalID string) (rbac.Role, bool, error) {
	u, err := r.repo.GetByExternalID(ctx, externalID)
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return u.Role, true, nil
}
