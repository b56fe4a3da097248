package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// MigrateUp applies all pending migrations to the database at path.
// No pending migrations is not an error.
//
// golang-migrate closes the connection it is handed, so every migration
// helper opens its own.
func MigrateUp(ctx context.Context, path string) error {
	m, err := newMigrator(ctx, path)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("db: apply migrations: %w", err)
	}
	return nil
}

// MigrateDown rolls back steps migrations, or all of them when steps is -1.
func MigrateDown(ctx context.Context, path string, steps int) error {
	m, err := newMigrator(ctx, path)
	if err != nil {
		return err
	}
	defer m.Close()

	if steps == -1 {
		err = m.Down()
	} else {
		err = m.Steps(-steps)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("db: roll back migrations: %w", err)
	}
	return nil
}

// MigrationVersion returns the applied version and the dirty flag. A fresh
// database reports version 0.
func MigrationVersion(ctx context.Context, path string) (uint, bool, error) {
	m, err := newMigrator(ctx, path)
	if err != nil {
		return 0, false, err
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("db: read migration version: %w", err)
	}
	return version, dirty, nil
}

func newMigrator(ctx context.Context, path string) (*migrate.Migrate, error) {
	conn, err := NewSQLiteConnection(ctx, DefaultConnectionConfig(path))
	if err != nil {
		return nil, err
	}
	m, err := newMigratorWithConn(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return m, nil
}

func newMigratorWithConn(conn *sql.DB) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("db: load embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(conn, &sqlite.Config{DatabaseName: "main"})
	if err != nil {
		return nil, fmt.Errorf("db: create sqlite migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("db: create migrator: %w", err)
	}
	return m, nil
}
