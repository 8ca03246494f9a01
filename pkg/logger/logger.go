package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

const serviceName = "zephyr-lounge"

// New returns the process logger for appEnv, writing to stdout.
func New(appEnv string) *slog.Logger {
	return NewWithWriter(os.Stdout, appEnv)
}

// NewWithWriter builds the logger: human-readable text on a developer machine,
// JSON everywhere else. Non-deployed environments log at debug.
func NewWithWriter(w io.Writer, appEnv string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: levelFor(appEnv)}

	var h slog.Handler
	if appEnv == "local" {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h).With("service", serviceName, "env", appEnv)
}

func levelFor(appEnv string) slog.Level {
	switch appEnv {
	case "local", "dev", "test":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

type ctxKey struct{}

// With stores a logger in ctx.
func With(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From returns the logger stored by With, or slog.Default().
func From(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}
