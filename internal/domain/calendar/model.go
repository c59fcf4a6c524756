package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Activity type constants.
const (
	TypeLesson     = "lesson"
	TypeQuiz       = "quiz"
	TypeAssignment = "assignment"
	TypeProject    = "project"
	TypeExercise   = "exercise"
	TypeActivity   = "activity"
	TypeCancelled  = "cancelled" // rendered title-only; link/time/due are kept but not shown
)

// ValidTypes contains all valid activity type values, in display order.
var ValidTypes = []string{
	TypeLesson, TypeQuiz, TypeAssignment, TypeProject,
	TypeExercise, TypeActivity, TypeCancelled,
}

// Column constants. Every week has exactly these three activity lists.
const (
	ColumnClass1   = "class1"
	ColumnClass2   = "class2"
	ColumnHomework = "homework"
)

// ValidColumns contains all valid column identifiers.
var ValidColumns = []string{ColumnClass1, ColumnClass2, ColumnHomework}

// DateLayout is the ISO date format used for startDate and due fields.
const DateLayout = "2006-01-02"

// Domain errors
var (
	ErrInvalidType   = errors.New("activity type is not a known type")
	ErrInvalidColumn = errors.New("column must be class1, class2, or homework")
	ErrEmptyLabel    = errors.New("week label cannot be empty")
	ErrInvalidDate   = errors.New("date must be in YYYY-MM-DD format")
)

// Activity is one calendar item: a class session part or a homework entry.
// INVARIANT: ID is assigned once and never reassigned; it is the stable
// identity across re-renders and drag moves, where list indices are not.
type Activity struct {
	ID    string `json:"id,omitempty"`
	Type  string `json:"type"`
	Title string `json:"title"`
	Link  string `json:"link,omitempty"`
	Time  string `json:"time,omitempty"` // e.g. "30m", "1h"
	Due   string `json:"due,omitempty"`  // YYYY-MM-DD
}

// Validate checks the activity's invariants.
// PRE: none
// POST: returns nil if valid, error describing the first violation otherwise
func (a *Activity) Validate() error {
	if !IsValidType(a.Type) {
		return ErrInvalidType
	}
	if a.Due != "" {
		if _, err := time.Parse(DateLayout, a.Due); err != nil {
			return fmt.Errorf("due date %q: %w", a.Due, ErrInvalidDate)
		}
	}
	return nil
}

// IsCancelled reports whether this activity is a cancelled class.
func (a *Activity) IsCancelled() bool {
	return a.Type == TypeCancelled
}

// Week is one row of the calendar: a label, a start date anchoring a 7-day
// window, and the three fixed activity columns.
type Week struct {
	Week      string     `json:"week"`      // display label, e.g. "W01 - JAN 26"
	StartDate string     `json:"startDate"` // YYYY-MM-DD
	Class1    []Activity `json:"class1"`
	Class2    []Activity `json:"class2"`
	Homework  []Activity `json:"homework"`
}

// Validate checks the week's invariants.
// PRE: none
// POST: returns nil if valid, error otherwise
func (w *Week) Validate() error {
	if strings.TrimSpace(w.Week) == "" {
		return ErrEmptyLabel
	}
	if w.StartDate != "" {
		if _, err := time.Parse(DateLayout, w.StartDate); err != nil {
			return fmt.Errorf("start date %q: %w", w.StartDate, ErrInvalidDate)
		}
	}
	for _, col := range ValidColumns {
		list := w.Column(col)
		for i := range list {
			if err := list[i].Validate(); err != nil {
				return fmt.Errorf("%s[%d]: %w", col, i, err)
			}
		}
	}
	return nil
}

// Column returns the activity list for the given column id.
// PRE: col is a valid column (see IsValidColumn)
// POST: returns the slice held by the week (not a copy); nil for unknown col
func (w *Week) Column(col string) []Activity {
	switch col {
	case ColumnClass1:
		return w.Class1
	case ColumnClass2:
		return w.Class2
	case ColumnHomework:
		return w.Homework
	}
	return nil
}

// SetColumn replaces the activity list for the given column id.
// PRE: col is a valid column
// POST: the week holds the new slice; unknown col is a no-op
func (w *Week) SetColumn(col string, activities []Activity) {
	switch col {
	case ColumnClass1:
		w.Class1 = activities
	case ColumnClass2:
		w.Class2 = activities
	case ColumnHomework:
		w.Homework = activities
	}
}

// IsCurrent returns true if today falls within the week's 7-day window
// (StartDate inclusive through StartDate+6 days inclusive).
// PRE: none
// POST: returns false for an empty or malformed StartDate
func (w *Week) IsCurrent(today time.Time) bool {
	if w.StartDate == "" {
		return false
	}
	start, err := time.Parse(DateLayout, w.StartDate)
	if err != nil {
		return false
	}
	d := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 6)
	return !d.Before(start) && !d.After(end)
}

// AnyCancelled returns true if any activity in the given column is cancelled.
func (w *Week) AnyCancelled(col string) bool {
	list := w.Column(col)
	for i := range list {
		if list[i].IsCancelled() {
			return true
		}
	}
	return false
}

// CalendarData is the entire persisted unit for one term.
type CalendarData struct {
	Weeks []Week `json:"weeks"`
}

// Validate checks every week in the document.
// PRE: none
// POST: returns nil if valid, error naming the offending week otherwise
func (c *CalendarData) Validate() error {
	for i := range c.Weeks {
		if err := c.Weeks[i].Validate(); err != nil {
			return fmt.Errorf("week %d: %w", i, err)
		}
	}
	return nil
}

// Clone returns a deep copy of the document. Mutating the copy never
// touches the original's weeks or activity lists.
// PRE: none
// POST: returned value shares no slices with the receiver
func (c *CalendarData) Clone() CalendarData {
	out := CalendarData{Weeks: make([]Week, len(c.Weeks))}
	for i := range c.Weeks {
		w := c.Weeks[i]
		w.Class1 = append([]Activity(nil), w.Class1...)
		w.Class2 = append([]Activity(nil), w.Class2...)
		w.Homework = append([]Activity(nil), w.Homework...)
		out.Weeks[i] = w
	}
	return out
}

// EnsureIDs assigns a fresh id to every activity that has none. Documents
// written by the legacy editor carry id-less activities; ids are assigned
// once on load and kept thereafter.
// PRE: generateID returns a unique string per call
// POST: every activity has a non-empty ID; returns true if any was assigned
func (c *CalendarData) EnsureIDs(generateID func() string) bool {
	assigned := false
	for i := range c.Weeks {
		for _, col := range ValidColumns {
			list := c.Weeks[i].Column(col)
			for j := range list {
				if list[j].ID == "" {
					list[j].ID = generateID()
					assigned = true
				}
			}
		}
	}
	return assigned
}

// ActivityCount returns the total number of activities across all weeks.
func (c *CalendarData) ActivityCount() int {
	n := 0
	for i := range c.Weeks {
		n += len(c.Weeks[i].Class1) + len(c.Weeks[i].Class2) + len(c.Weeks[i].Homework)
	}
	return n
}

// IsValidType returns true if t is a known activity type.
func IsValidType(t string) bool {
	for _, v := range ValidTypes {
		if t == v {
			return true
		}
	}
	return false
}

// IsValidColumn returns true if col names one of the three activity lists.
func IsValidColumn(col string) bool {
	return col == ColumnClass1 || col == ColumnClass2 || col == ColumnHomework
}
