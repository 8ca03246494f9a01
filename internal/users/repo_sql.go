package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"zephyr-lounge/internal/rbac"
	"zephyr-lounge/pkg/utils"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// NOTE: This repository assumes the users table from internal/database migrations,
// including UNIQUE (external_id).
//
// Queries are written with ? placeholders and rebound for pgx.

const userColumns = `id, external_id, identifier, role, created_at, updated_at`

type SQLRepo struct {
	db     *sql.DB
	driver string
}

// NewSQLRepo wraps db. driverName is the database/sql driver ("pgx" or "sqlite").
func NewSQLRepo(db *sql.DB, driverName string) *SQLRepo {
	return &SQLRepo{db: db, driver: driverName}
}

func (r *SQLRepo) q(query string) string { return utils.Rebind(r.driver, query) }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var (
		u    User
		role string
	)
	if err := row.Scan(&u.ID, &u.ExternalID, &u.Identifier, &role, dbTime{&u.CreatedAt}, dbTime{&u.UpdatedAt}); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	u.Role = rbac.Role(role)
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}

func (r *SQLRepo) Create(ctx context.Context, in CreateInput, now time.Time) (User, error) {
	row := r.db.QueryRowContext(ctx, r.q(`
INSERT INTO users (external_id, identifier, role, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
RETURNING `+userColumns), in.ExternalID, in.Identifier, string(in.Role), r.ts(now), r.ts(now))

	u, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrDuplicate
		}
		return User{}, err
	}
	return u, nil
}

func (r *SQLRepo) GetByID(ctx context.Context, id int64) (User, error) {
	return scanUser(r.db.QueryRowContext(ctx, r.q(`SELECT `+userColumns+` FROM users WHERE id = ?`), id))
}

func (r *SQLRepo) GetByExternalID(ctx context.Context, externalID string) (User, error) {
	return scanUser(r.db.QueryRowContext(ctx, r.q(`SELECT `+userColumns+` FROM users WHERE external_id = ?`), externalID))
}

func (r *SQLRepo) UpdateRole(ctx context.Context, externalID string, role rbac.Role, now time.Time) (rbac.Role, User, error) {
	var (
		prev rbac.Role
		out  User
	)
	err := utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		// Lock the row so concurrent role changes are serialized (postgres only;
		// sqlite serializes writers already).
		lock := ""
		if r.driver == "pgx" {
			lock = " FOR UPDATE"
		}
		cur, err := scanUser(tx.QueryRowContext(ctx, r.q(`SELECT `+userColumns+` FROM users WHERE external_id = ?`+lock), externalID))
		if err != nil {
			return err
		}
		prev = cur.Role

		out, err = scanUser(tx.QueryRowContext(ctx, r.q(`
UPDATE users SET role = ?, updated_at = ?
WHERE external_id = ?
RETURNING `+userColumns), string(role), r.ts(now), externalID))
		return err
	})
	if err != nil {
		return "", User{}, err
	}
	return prev, out, nil
}

func (r *SQLRepo) Delete(ctx context.Context, externalID string) error {
	res, err := r.db.ExecContext(ctx, r.q(`DELETE FROM users WHERE external_id = ?`), externalID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ts binds timestamps: pgx takes time.Time natively, sqlite gets a sortable RFC 3339 string.
func (r *SQLRepo) ts(t time.Time) any {
	if r.driver == "pgx" {
		return t.UTC()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// dbTime scans a timestamp column stored either natively or as text.
type dbTime struct{ t *time.Time }

func (d dbTime) Scan(v any) error {
	switch x := v.(type) {
	case time.Time:
		*d.t = x
		return nil
	case string:
		return d.parse(x)
	case []byte:
		return d.parse(string(x))
	case nil:
		*d.t = time.Time{}
		return nil
	default:
		return fmt.Errorf("users: cannot scan %T into timestamp", v)
	}
}

func (d dbTime) parse(s string) error {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			*d.t = t
			return nil
		}
	}
	return fmt.Errorf("users: unparseable timestamp %q", s)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
