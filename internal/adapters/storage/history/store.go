package history

import (
	"context"

	domain "coursecal/internal/domain/history"
)

// Store persists the save-history log.
type Store interface {
	Save(ctx context.Context, r domain.Record) error
	ListByTerm(ctx context.Context, term string, limit int) ([]domain.Record, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Record, error)
}
