// Package database opens the user store and applies the embedded schema migrations
// (golang-migrate) for the postgres and sqlite dialects.
package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"zephyr-lounge/internal/config"
	"zephyr-lounge/pkg/utils"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// Open connects to the configured store.
func Open(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	db, err := utils.OpenDB(ctx, cfg.SQLDriverName(), cfg.DSN(), utils.PoolConfig{})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DB.Driver, err)
	}
	return db, nil
}

// Migrate applies all pending up migrations. It opens its own connection because the
// migrate driver closes the handle it is given.
func Migrate(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	db, err := Open(ctx, cfg)
	if err != nil {
		return err
	}

	var (
		driver database.Driver
		dir    string
	)
	switch cfg.SQLDriverName() {
	case "sqlite":
		dir = "migrations/sqlite"
		driver, err = sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	default:
		dir = "migrations/postgres"
		driver, err = pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	}
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("migrate driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, dir)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("migrate source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, cfg.DB.Driver, driver)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("migrate init: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}

	version, dirty, _ := m.Version()
	logger.Info("migrations applied", "driver", cfg.DB.Driver, "version", version, "dirty", dirty)
	return nil
}
