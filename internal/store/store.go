// Package store keeps a history of runs. It is never read back to resume
// downloads; the partial files on disk are the only resumption state.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to the history database. A postgres:// or postgresql:// DSN
// selects PostgreSQL; anything else is a SQLite file path.
func Open(ctx context.Context, dsn string) (*Store, error) {
	driver, source := "sqlite", dsn
	if isPostgres(dsn) {
		driver = "pgx"
	} else {
		// Ensure the database directory exists
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		source = dsn + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", driver, err)
	}

	// Ping makes sure the database is actually reachable and the DSN is valid
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	s := &Store{db: db, driver: driver}
	if err := s.createSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create schema: %w", err)
	}

	return s, nil
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		label       TEXT NOT NULL,
		started_at  BIGINT NOT NULL,
		finished_at BIGINT NOT NULL,
		wanted      INTEGER NOT NULL,
		matched     INTEGER NOT NULL,
		missing     INTEGER NOT NULL,
		completed   INTEGER NOT NULL,
		skipped     INTEGER NOT NULL,
		failed      INTEGER NOT NULL,
		cancelled   INTEGER NOT NULL,
		bytes       BIGINT NOT NULL,
		interrupted BOOLEAN NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS outcomes (
		run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		idx        INTEGER NOT NULL,
		name       TEXT NOT NULL,
		file_name  TEXT NOT NULL,
		status     TEXT NOT NULL,
		attempts   INTEGER NOT NULL,
		bytes      BIGINT NOT NULL,
		last_error TEXT NOT NULL,
		PRIMARY KEY (run_id, idx)
	)`,
	`CREATE TABLE IF NOT EXISTS missing (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		pos    INTEGER NOT NULL,
		name   TEXT NOT NULL,
		PRIMARY KEY (run_id, pos)
	)`,
}

func (s *Store) createSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
