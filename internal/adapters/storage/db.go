package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLDB is the database interface used by SQL-backed stores. *sql.DB
// satisfies it; tests can substitute a wrapper.
type SQLDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Compile-time check that *sql.DB satisfies SQLDB.
var _ SQLDB = (*sql.DB)(nil)

// InitDB initializes the save-history schema.
// PRE: db is a valid database connection
// POST: tables are created, WAL mode enabled
func InitDB(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS save_record (
		id TEXT PRIMARY KEY,
		term TEXT NOT NULL,
		saved_at TEXT NOT NULL,
		weeks INTEGER NOT NULL,
		activities INTEGER NOT NULL,
		bytes INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		detail TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_save_record_term ON save_record(term, saved_at);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
