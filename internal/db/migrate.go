package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/crucial707/tools-sys/internal/config"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrate applies all pending migrations (Up) for the configured driver.
// Returns nil if migrations were applied or if already at latest version (ErrNoChange).
func Migrate(cfg config.Config) error {
	var databaseURL string
	switch cfg.DBDriver {
	case config.DriverPostgres:
		databaseURL = cfg.PostgresURL()
	case config.DriverSQLite:
		databaseURL = "sqlite://" + cfg.DBPath
	default:
		return fmt.Errorf("unsupported driver %q", cfg.DBDriver)
	}

	src, err := iofs.New(migrationsFS, "migrations/"+cfg.DBDriver)
	if err != nil {
		return fmt.Errorf("migrate source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return fmt.Errorf("migrate new: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}
