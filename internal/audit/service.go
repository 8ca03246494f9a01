package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records internal audit information.
//
// Audit is internal-only and callers treat it as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s == nil || s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}
	if e.ActorID == "" && e.IPAddress == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// LogVerifyAccess records a call to the test verification endpoint. redactedID must
// already be redacted by the caller.
func (s *Service) LogVerifyAccess(ctx context.Context, ip, redactedID, env string) error {
	return s.Append(ctx, Event{
		Type:      EventTypeVerifyAccess,
		IPAddress: ip,
		TargetID:  redactedID,
		Message:   "test verification endpoint accessed",
		Metadata:  metadata(map[string]string{"environment": env}),
	})
}

func (s *Service) LogUserCreated(ctx context.Context, actorID, targetID, identifier string) error {
	return s.Append(ctx, Event{
		Type:     EventTypeUserCreated,
		ActorID:  actorID,
		TargetID: targetID,
		Message:  "user created",
		Metadata: metadata(map[string]string{"identifier": identifier}),
	})
}

func (s *Service) LogUserDeleted(ctx context.Context, actorID, actorRole, targetID string) error {
	return s.Append(ctx, Event{
		Type:      EventTypeUserDeleted,
		ActorID:   actorID,
		ActorRole: actorRole,
		TargetID:  targetID,
		Message:   "user deleted",
	})
}

func (s *Service) LogRoleChanged(ctx context.Context, actorID, actorRole, targetID, from, to string) error {
	return s.Append(ctx, Event{
		Type:      EventTypeRoleChanged,
		ActorID:   actorID,
		ActorRole: actorRole,
		TargetID:  targetID,
		Message:   "role changed",
		Metadata:  metadata(map[string]string{"from": from, "to": to}),
	})
}

func metadata(m map[string]string) string {
	b, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(b)
}
