package audit

import (
	"context"
	"database/sql"
	"time"

	"zephyr-lounge/pkg/utils"
)

// SQLRepo appends events to the audit_events table. There is no update or delete path.
type SQLRepo struct {
	db     *sql.DB
	driver string
}

func NewSQLRepo(db *sql.DB, driverName string) *SQLRepo {
	return &SQLRepo{db: db, driver: driverName}
}

func (r *SQLRepo) Append(ctx context.Context, e Event) error {
	_, err := r.db.ExecContext(ctx, utils.Rebind(r.driver, `
INSERT INTO audit_events (id, type, actor_id, actor_role, ip_address, target_id, message, metadata, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`), e.ID, string(e.Type), e.ActorID, e.ActorRole, e.IPAddress, e.TargetID, e.Message, e.Metadata, r.ts(e.CreatedAt))
	return err
}

func (r *SQLRepo) ts(t time.Time) any {
	if r.driver == "pgx" {
		return t.UTC()
	}
	return t.UTC().Format(time.RFC3339Nano)
}
