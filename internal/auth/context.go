package auth

import (
	"context"

	"zephyr-lounge/internal/rbac"
)

type ctxKey int

const (
	ctxExternalID ctxKey = iota
	ctxSessionID
)

func WithSession(ctx context.Context, externalID, sessionID string) context.Context {
	ctx = context.WithValue(ctx, ctxExternalID, externalID)
	ctx = context.WithValue(ctx, ctxSessionID, sessionID)
	return ctx
}

// ExternalID returns the identity id of the signed-in caller, if any.
func ExternalID(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(ctxExternalID).(string)
	return s, ok && s != ""
}

func SessionID(ctx context.Context) string {
	s, _ := ctx.Value(ctxSessionID).(string)
	return s
}

// ContextSessions reads the session placed on the request context by LoadSession.
type ContextSessions struct{}

var _ rbac.SessionProvider = ContextSessions{}

func (ContextSessions) ExternalID(ctx context.Context) (string, bool) { return ExternalID(ctx) }
