package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"zephyr-lounge/internal/audit"
	"zephyr-lounge/internal/rbac"
)

type stubSessions struct{ id string }

func (s stubSessions) ExternalID(context.Context) (string, bool) { return s.id, s.id != "" }

type fixture struct {
	repo  *MemoryRepo
	audit *audit.MemoryRepo
}

func (f fixture) as(caller string) *Service {
	svc := NewService(f.repo, stubSessions{id: caller}, audit.NewService(f.audit))
	svc.Now = func() time.Time { return time.Unix(1700000000, 0).UTC() }
	return svc
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	f := fixture{repo: NewMemoryRepo(), audit: audit.NewMemoryRepo()}
	sys := f.as("")
	ctx := context.Background()
	for _, in := range []CreateInput{
		{ExternalID: "user_alice", Identifier: "alice@example.com"},
		{ExternalID: "user_bob", Identifier: "bob@example.com"},
		{ExternalID: "user_admin", Identifier: "admin@example.com", Role: rbac.RoleAdmin},
	} {
		if _, err := sys.CreateUserSystem(ctx, in); err != nil {
			t.Fatalf("seed %s: %v", in.ExternalID, err)
		}
	}
	return f
}

func TestCreateUser_RequiresSystem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.as("user_admin").CreateUser(ctx, CreateInput{ExternalID: "user_new", Identifier: "n"}, false)
	if !errors.Is(err, rbac.ErrUnauthorized) {
		t.Fatalf("expected admins to be refused, got %v", err)
	}

	u, err := f.as("").CreateUser(ctx, CreateInput{ExternalID: "user_new", Identifier: "n"}, true)
	if err != nil {
		t.Fatalf("system create: %v", err)
	}
	if u.Role != rbac.RoleUser || u.ID == 0 {
		t.Fatalf("unexpected user %+v", u)
	}
}

func TestCreateUser_DuplicateExternalID(t *testing.T) {
	f := newFixture(t)
	_, err := f.as("").CreateUserSystem(context.Background(), CreateInput{ExternalID: "user_alice", Identifier: "again"})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if f.repo.Len() != 3 {
		t.Fatalf("duplicate must not add a record")
	}
}

func TestCreateUser_ValidatesInput(t *testing.T) {
	f := newFixture(t)
	if _, err := f.as("").CreateUserSystem(context.Background(), CreateInput{ExternalID: "user_x"}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestGetUserByExternalID_Ownership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		caller string
		system bool
		target string
		ok     bool
	}{
		{"user_alice", false, "user_alice", true},
		{"user_alice", false, "user_bob", false},
		{"user_admin", false, "user_bob", true},
		{"", true, "user_bob", true},
		{"", false, "user_bob", false},
	}
	for _, tc := range cases {
		_, err := f.as(tc.caller).GetUserByExternalID(ctx, tc.target, tc.system)
		if tc.ok && err != nil {
			t.Fatalf("%s -> %s: expected ok, got %v", tc.caller, tc.target, err)
		}
		if !tc.ok && !errors.Is(err, rbac.ErrUnauthorized) {
			t.Fatalf("%s -> %s: expected unauthorized, got %v", tc.caller, tc.target, err)
		}
	}
}

func TestGetUserByID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, _ := f.repo.GetByExternalID(ctx, "user_alice")
	bob, _ := f.repo.GetByExternalID(ctx, "user_bob")

	if _, err := f.as("user_alice").GetUserByID(ctx, alice.ID, false); err != nil {
		t.Fatalf("own record: %v", err)
	}
	if _, err := f.as("user_alice").GetUserByID(ctx, bob.ID, false); !errors.Is(err, rbac.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for other record, got %v", err)
	}
	if _, err := f.as("user_alice").GetUserByID(ctx, 9999, false); !errors.Is(err, rbac.ErrUnauthorized) {
		t.Fatalf("missing id must look like someone else's record, got %v", err)
	}
	if _, err := f.as("user_admin").GetUserByID(ctx, 9999, false); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for admin, got %v", err)
	}
	if _, err := f.as("").GetUserByID(ctx, alice.ID, false); !errors.Is(err, rbac.ErrUnauthorized) {
		t.Fatalf("expected anonymous to be refused, got %v", err)
	}
}

func TestUpdateUserRole_RequiresAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.as("user_alice").UpdateUserRole(ctx, "user_alice", rbac.RoleAdmin, false); !errors.Is(err, rbac.ErrUnauthorized) {
		t.Fatalf("users must not promote themselves, got %v", err)
	}

	u, err := f.as("user_admin").UpdateUserRole(ctx, "user_alice", rbac.RoleAdmin, false)
	if err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if u.Role != rbac.RoleAdmin {
		t.Fatalf("expected ADMIN, got %s", u.Role)
	}

	evs := f.audit.Events()
	last := evs[len(evs)-1]
	if last.Type != audit.EventTypeRoleChanged || last.ActorID != "user_admin" || last.TargetID != "user_alice" {
		t.Fatalf("unexpected audit event %+v", last)
	}

	if _, err := f.as("").UpdateUserRole(ctx, "user_ghost", rbac.RoleUser, true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := f.as("").UpdateUserRole(ctx, "user_bob", rbac.Role("ROOT"), true); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestUserExists_HidesUnauthorized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ok, err := f.as("user_alice").UserExists(ctx, "user_bob", false)
	if err != nil || ok {
		t.Fatalf("expected false without error, got %v %v", ok, err)
	}
	ok, _ = f.as("user_alice").UserExists(ctx, "user_alice", false)
	if !ok {
		t.Fatalf("expected own record to exist")
	}
	ok, _ = f.as("").UserExists(ctx, "user_ghost", true)
	if ok {
		t.Fatalf("expected missing record to be false")
	}
	ok, _ = f.as("").UserExists(ctx, "user_bob", true)
	if !ok {
		t.Fatalf("expected system to see record")
	}
}

func TestDeleteUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.as("user_alice").DeleteUser(ctx, "user_bob", false); !errors.Is(err, rbac.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if err := f.as("user_alice").DeleteUser(ctx, "user_alice", false); err != nil {
		t.Fatalf("self delete: %v", err)
	}
	if err := f.as("").DeleteUser(ctx, "user_alice", true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if f.repo.Len() != 2 {
		t.Fatalf("expected 2 records left, got %d", f.repo.Len())
	}
}

func TestDerive_UsesStoredRole(t *testing.T) {
	f := newFixture(t)
	ac, err := f.as("user_admin").Deriver().Derive(context.Background(), false)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if !ac.IsAdmin || ac.CallerRole != rbac.RoleAdmin {
		t.Fatalf("expected admin context, got %+v", ac)
	}

	ac, _ = f.as("user_unknown").Deriver().Derive(context.Background(), false)
	if ac.IsAdmin || ac.CallerRole != "" || ac.CallerIdentity != "user_unknown" {
		t.Fatalf("expected plain caller without local record, got %+v", ac)
	}
}
