package history

import (
	"errors"
	"time"
)

// Outcome of one persisted save attempt.
type Outcome string

const (
	OutcomeSaved  Outcome = "saved"
	OutcomeFailed Outcome = "failed"
)

// Domain errors
var (
	ErrEmptyTerm      = errors.New("save record term cannot be empty")
	ErrInvalidOutcome = errors.New("save record outcome must be saved or failed")
)

// Record is one entry in the save-history log: a single write of a term's
// calendar document, successful or not.
type Record struct {
	ID         string    `json:"id"`
	Term       string    `json:"term"`
	SavedAt    time.Time `json:"saved_at"`
	Weeks      int       `json:"weeks"`
	Activities int       `json:"activities"`
	Bytes      int       `json:"bytes"`
	Outcome    Outcome   `json:"outcome"`
	Detail     string    `json:"detail"` // error text for failed writes, empty otherwise
}

// Validate checks the record's invariants.
// PRE: none
// POST: returns nil if valid, error otherwise
func (r *Record) Validate() error {
	if r.Term == "" {
		return ErrEmptyTerm
	}
	if r.Outcome != OutcomeSaved && r.Outcome != OutcomeFailed {
		return ErrInvalidOutcome
	}
	return nil
}
