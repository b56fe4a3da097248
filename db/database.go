package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"caricature_studio/core"
)

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("db: database is closed")

// Database owns the sqlite connection and its lifecycle: open, migrate,
// close.
//
// Usage:
//
//	database, err := Open(ctx, cfg.DatabasePath)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer database.Close()
//	repo := NewRepository(database)
type Database struct {
	mu   sync.RWMutex
	conn *sql.DB
	path string
}

// Open creates the parent directory, applies pending migrations and opens
// the connection used by repositories.
func Open(ctx context.Context, path string) (*Database, error) {
	return OpenWithConfig(ctx, DefaultConnectionConfig(path))
}

func OpenWithConfig(ctx context.Context, config ConnectionConfig) (*Database, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("db: database path is required")
	}
	if err := core.EnsureParentDir(config.Path); err != nil {
		return nil, fmt.Errorf("db: create database directory: %w", err)
	}
	if err := MigrateUp(ctx, config.Path); err != nil {
		return nil, err
	}

	conn, err := NewSQLiteConnection(ctx, config)
	if err != nil {
		return nil, err
	}
	return &Database{conn: conn, path: config.Path}, nil
}

func (d *Database) Path() string {
	return d.path
}

// Ping verifies the connection is alive. Used by the health endpoint.
func (d *Database) Ping(ctx context.Context) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.conn == nil {
		return ErrClosed
	}
	return d.conn.PingContext(ctx)
}

// Close closes the connection. Safe to call more than once.
func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn = nil
	if err != nil {
		return fmt.Errorf("db: close: %w", err)
	}
	return nil
}

// withConn runs fn while holding the read lock so Close cannot race a query.
func (d *Database) withConn(fn func(conn *sql.DB) error) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.conn == nil {
		return ErrClosed
	}
	return fn(d.conn)
}

// withTx runs fn in a transaction and commits when it returns nil.
func (d *Database) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return d.withConn(func(conn *sql.DB) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("db: begin transaction: %w", err)
		}
		if err := fn(tx); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("db: commit: %w", err)
		}
		return nil
	})
}
