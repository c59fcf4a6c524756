package term

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Domain errors
var (
	ErrEmptyCode   = errors.New("term code cannot be empty")
	ErrInvalidCode = errors.New("term code may only contain lowercase letters, digits, and dashes")
)

// MaxCodeLength bounds term codes; they name files on disk.
const MaxCodeLength = 16

// seasonNames maps the leading letter of a conventional term code to its
// display name. Codes outside the convention are still accepted everywhere;
// they just fall back to the raw code for display.
var seasonNames = map[byte]string{
	'w': "Winter",
	's': "Spring",
	'm': "Summer",
	'f': "Fall",
}

// Term identifies one academic term and thus one calendar document.
// The code is the unit of addressing throughout the system ("w26", "f25").
type Term struct {
	Code string
}

// Validate checks that the code is non-empty and safe to use as part of a
// filename. Codes are otherwise opaque.
// PRE: none
// POST: returns nil if Code is usable as a document key
func (t *Term) Validate() error {
	code := strings.TrimSpace(t.Code)
	if code == "" {
		return ErrEmptyCode
	}
	if code != t.Code || len(code) > MaxCodeLength {
		return ErrInvalidCode
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '-' {
			return ErrInvalidCode
		}
	}
	return nil
}

// Label returns a human-readable name for the term, e.g. "Winter 2026" for
// "w26". Codes outside the season-letter convention come back unchanged.
// PRE: none
// INVARIANT: Term fields are not mutated
func (t *Term) Label() string {
	if len(t.Code) != 3 {
		return t.Code
	}
	season, ok := seasonNames[t.Code[0]]
	if !ok {
		return t.Code
	}
	year, err := strconv.Atoi(t.Code[1:])
	if err != nil {
		return t.Code
	}
	return fmt.Sprintf("%s 20%02d", season, year)
}

// Filename returns the on-disk document name for this term by the
// calendar-<term>.json convention.
// PRE: Validate returns nil
func (t *Term) Filename() string {
	return "calendar-" + t.Code + ".json"
}
