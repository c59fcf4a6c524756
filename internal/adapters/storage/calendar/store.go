package calendar

import (
	"context"
	"errors"

	domain "coursecal/internal/domain/calendar"
)

// Store errors
var (
	// ErrNotFound is returned by Load when no document exists for a term.
	ErrNotFound = errors.New("calendar not found")
)

// Store persists one CalendarData document per term code. Documents are
// read and written wholesale; there is no partial patching and no version
// check — a Save overwrites unconditionally.
type Store interface {
	Load(ctx context.Context, term string) (domain.CalendarData, error)
	Save(ctx context.Context, term string, data domain.CalendarData) error
	ListTerms(ctx context.Context) ([]string, error)
}
