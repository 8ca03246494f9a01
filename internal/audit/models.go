package audit

import "time"

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - Identity ids of unauthenticated subjects are stored redacted.
// - Audit is best-effort; do not block critical flows on audit failures.
type Event struct {
	ID   string    `json:"id" db:"id"`
	Type EventType `json:"type" db:"type"`

	// ActorID is the external identity causing the event; "system" for webhooks.
	ActorID   string `json:"actor_id,omitempty" db:"actor_id"`
	ActorRole string `json:"actor_role,omitempty" db:"actor_role"`

	// IPAddress is the resolved client address when the event comes from a request.
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	// TargetID is the external identity the event is about.
	TargetID string `json:"target_id,omitempty" db:"target_id"`

	Message  string `json:"message,omitempty" db:"message"`
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeVerifyAccess EventType = "verify_access"
	EventTypeUserCreated  EventType = "user_created"
	EventTypeUserDeleted  EventType = "user_deleted"
	EventTypeRoleChanged  EventType = "role_changed"
)

// SystemActor is the actor recorded for trusted internal callers.
const SystemActor = "system"
