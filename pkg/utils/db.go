package utils

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Registered database/sql driver names.
const (
	DriverPgx    = "pgx"
	DriverSQLite = "sqlite"
)

// PoolConfig overrides the per-driver pool defaults. Zero fields keep the default.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	PingTimeout     time.Duration
}

// SQLite allows a single writer; more than one open connection only buys SQLITE_BUSY.
var poolDefaults = map[string]PoolConfig{
	DriverPgx:    {MaxOpenConns: 25, MaxIdleConns: 25, ConnMaxLifetime: 30 * time.Minute, PingTimeout: 5 * time.Second},
	DriverSQLite: {MaxOpenConns: 1, MaxIdleConns: 1, PingTimeout: 5 * time.Second},
}

func (c PoolConfig) resolve(driverName string) PoolConfig {
	out := poolDefaults[driverName]
	if c.MaxOpenConns > 0 && driverName != DriverSQLite {
		out.MaxOpenConns = c.MaxOpenConns
	}
	if c.MaxIdleConns > 0 && c.MaxIdleConns <= out.MaxOpenConns {
		out.MaxIdleConns = c.MaxIdleConns
	}
	if c.ConnMaxLifetime > 0 {
		out.ConnMaxLifetime = c.ConnMaxLifetime
	}
	if c.PingTimeout > 0 {
		out.PingTimeout = c.PingTimeout
	}
	if out.PingTimeout <= 0 {
		out.PingTimeout = 5 * time.Second
	}
	return out
}

// OpenDB opens and pings a database/sql handle. The caller imports the driver.
// dsn must not be logged; it contains secrets.
func OpenDB(ctx context.Context, driverName, dsn string, pool PoolConfig) (*sql.DB, error) {
	if _, ok := poolDefaults[driverName]; !ok {
		return nil, fmt.Errorf("unsupported sql driver %q", driverName)
	}
	pool = pool.resolve(driverName)

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)

	if err := HealthCheck(ctx, db, pool.PingTimeout); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// HealthCheck pings the DB with a timeout.
func HealthCheck(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("db ping failed: %w", err)
	}
	return nil
}

// Rebind rewrites ? placeholders to $1..$n for pgx. Queries must not contain
// literal question marks.
func Rebind(driverName, query string) string {
	if driverName != DriverPgx {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r != '?' {
			b.WriteRune(r)
			continue
		}
		n++
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}

// TxFunc is the unit of work executed inside a transaction.
type TxFunc func(ctx context.Context, tx *sql.Tx) error

// WithTx runs fn in a transaction and commits when it returns nil. On error the
// transaction is rolled back and a failed rollback is joined to fn's error; on panic
// it is rolled back and the panic continues.
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn TxFunc) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		rbErr := tx.Rollback()
		if p := recover(); p != nil {
			panic(p)
		}
		if rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
	}()

	if err = fn(ctx, tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}
