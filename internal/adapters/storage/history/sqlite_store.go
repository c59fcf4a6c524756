package history

import (
	"context"
	"database/sql"
	"time"

	"coursecal/internal/adapters/storage"
	domain "coursecal/internal/domain/history"
)

const dateLayout = "2006-01-02T15:04:05.999999999Z07:00"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new save-history store.
// PRE: db is a valid, open database connection with the schema applied
// POST: store is ready for use
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save appends one save record.
// PRE: r is a valid Record (Validate() returns nil)
// POST: record is persisted
func (s *SQLiteStore) Save(ctx context.Context, r domain.Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO save_record (id, term, saved_at, weeks, activities, bytes, outcome, detail)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Term, r.SavedAt.UTC().Format(dateLayout),
		r.Weeks, r.Activities, r.Bytes, string(r.Outcome), r.Detail)
	return err
}

// ListByTerm returns the most recent save records for one term.
// PRE: limit > 0
// POST: returns records ordered by saved_at descending
func (s *SQLiteStore) ListByTerm(ctx context.Context, term string, limit int) ([]domain.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, term, saved_at, weeks, activities, bytes, outcome, detail
		 FROM save_record WHERE term = ? ORDER BY saved_at DESC LIMIT ?`, term, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ListRecent returns the most recent save records across all terms.
// PRE: limit > 0
// POST: returns records ordered by saved_at descending
func (s *SQLiteStore) ListRecent(ctx context.Context, limit int) ([]domain.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, term, saved_at, weeks, activities, bytes, outcome, detail
		 FROM save_record ORDER BY saved_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]domain.Record, error) {
	var records []domain.Record
	for rows.Next() {
		var r domain.Record
		var savedAt, outcome string
		if err := rows.Scan(&r.ID, &r.Term, &savedAt, &r.Weeks, &r.Activities,
			&r.Bytes, &outcome, &r.Detail); err != nil {
			return nil, err
		}
		t, _ := time.Parse(dateLayout, savedAt)
		r.SavedAt = t
		r.Outcome = domain.Outcome(outcome)
		records = append(records, r)
	}
	return records, rows.Err()
}
