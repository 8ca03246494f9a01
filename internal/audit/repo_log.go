package audit

import (
	"context"
	"log/slog"
)

// LogRepo writes every event to the structured log and then forwards it to next,
// if set. The log line is written even when next fails.
type LogRepo struct {
	logger *slog.Logger
	next   Repository
}

func NewLogRepo(logger *slog.Logger, next Repository) *LogRepo {
	return &LogRepo{logger: logger.With("component", "audit"), next: next}
}

func (r *LogRepo) Append(ctx context.Context, e Event) error {
	r.logger.InfoContext(ctx, "audit",
		"event_id", e.ID,
		"type", string(e.Type),
		"actor_id", e.ActorID,
		"actor_role", e.ActorRole,
		"ip", e.IPAddress,
		"target_id", e.TargetID,
		"message", e.Message,
	)
	if r.next == nil {
		return nil
	}
	return r.next.Append(ctx, e)
}
