package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestService_AppendRequiresTypeAndActorOrIP(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Append(context.Background(), Event{ActorID: "system"}); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
	if err := svc.Append(context.Background(), Event{Type: EventTypeUserCreated}); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
	if len(repo.Events()) != 0 {
		t.Fatalf("invalid events must not be stored")
	}
}

func TestService_LogVerifyAccess(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.LogVerifyAccess(context.Background(), "1.2.3.4", "user_2ab***", "test"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event")
	}
	e := evs[0]
	if e.Type != EventTypeVerifyAccess || e.IPAddress != "1.2.3.4" || e.TargetID != "user_2ab***" {
		t.Fatalf("unexpected event %+v", e)
	}
	if e.ID == "" || e.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp to be filled")
	}
	var md map[string]string
	if err := json.Unmarshal([]byte(e.Metadata), &md); err != nil || md["environment"] != "test" {
		t.Fatalf("unexpected metadata %q", e.Metadata)
	}
}

func TestService_LogRoleChanged(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.LogRoleChanged(context.Background(), "user_admin", "ADMIN", "user_target", "USER", "ADMIN"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	e := repo.Events()[0]
	if e.ActorRole != "ADMIN" || !strings.Contains(e.Metadata, `"to":"ADMIN"`) {
		t.Fatalf("unexpected event %+v", e)
	}
}

func TestLogRepo_WritesAndForwards(t *testing.T) {
	var buf bytes.Buffer
	next := NewMemoryRepo()
	svc := NewService(NewLogRepo(slog.New(slog.NewJSONHandler(&buf, nil)), next))

	if err := svc.LogUserDeleted(context.Background(), SystemActor, "", "user_gone"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !strings.Contains(buf.String(), `"type":"user_deleted"`) {
		t.Fatalf("expected audit log line, got %q", buf.String())
	}
	if len(next.Events()) != 1 {
		t.Fatalf("expected event forwarded")
	}
}
