// Package editor holds the in-memory edit model for one term's calendar:
// a Session owning the current document, the mutation operations the UI is
// allowed to perform, and the autosave coordinator that debounces writes.
package editor

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"coursecal/internal/domain/calendar"
)

// NoLinkPlaceholder is the text the editor shows for an activity without a
// link. Saving it back as a real value would persist placeholder text, so
// an update to this exact string clears the field instead.
const NoLinkPlaceholder = "(no link)"

// DefaultTitle is the title given to newly added activities.
const DefaultTitle = "New Activity"

// Precondition errors. Addressing an index that does not exist is a contract
// violation by the caller, reported rather than silently corrupting state.
var (
	ErrWeekIndex      = errors.New("week index out of range")
	ErrActivityIndex  = errors.New("activity index out of range")
	ErrDestIndex      = errors.New("destination index out of range")
	ErrNoWeeks        = errors.New("cannot derive a new week for an empty calendar")
	ErrUnknownField   = errors.New("unknown field")
	ErrBadWeekStart   = errors.New("last week has no parseable start date")
	ErrEditableOrigin = errors.New("drag originated in an editable region")
)

// Saver receives a snapshot of the document after every mutation.
// *Autosaver satisfies it.
type Saver interface {
	Schedule(data calendar.CalendarData)
}

// Session is the edit model for one term: it owns the current CalendarData
// and is the only mutation surface. Every operation replaces the document
// wholesale, so a failed operation never leaves it partially updated, and
// signals the saver with the new state.
type Session struct {
	mu         sync.Mutex
	term       string
	data       calendar.CalendarData
	saver      Saver
	generateID func() string
	now        func() time.Time
}

// SessionConfig holds the session's injected collaborators.
type SessionConfig struct {
	Saver      Saver
	GenerateID func() string
	Now        func() time.Time
}

// NewSession creates a session for one term around a loaded document.
// Activities without ids (documents written by the legacy editor) get ids
// assigned here, once.
// PRE: cfg.GenerateID returns a unique string per call
// POST: every activity in the session's document has an id
func NewSession(termCode string, data calendar.CalendarData, cfg SessionConfig) *Session {
	s := &Session{
		term:       termCode,
		data:       data.Clone(),
		saver:      cfg.Saver,
		generateID: cfg.GenerateID,
		now:        cfg.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.data.EnsureIDs(s.generateID)
	return s
}

// Term returns the term code this session edits.
func (s *Session) Term() string {
	return s.term
}

// Data returns a deep copy of the current document. Callers can render or
// diff it without racing later mutations.
func (s *Session) Data() calendar.CalendarData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Clone()
}

// UpdateWeekField sets a week's label or start date to a trimmed value.
// PRE: weekIndex addresses an existing week; field is "week" or "startDate"
// POST: the field holds the trimmed value; saver is signalled
func (s *Session) UpdateWeekField(weekIndex int, field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.data.Clone()
	if weekIndex < 0 || weekIndex >= len(next.Weeks) {
		return fmt.Errorf("week %d: %w", weekIndex, ErrWeekIndex)
	}
	value = strings.TrimSpace(value)
	switch field {
	case "week":
		next.Weeks[weekIndex].Week = value
	case "startDate":
		next.Weeks[weekIndex].StartDate = value
	default:
		return fmt.Errorf("week field %q: %w", field, ErrUnknownField)
	}
	s.commit(next)
	return nil
}

// AddActivity appends a new lesson titled "New Activity" with a fresh id.
// PRE: weekIndex addresses an existing week; column is valid
// POST: the column has one more activity; saver is signalled
func (s *Session) AddActivity(weekIndex int, column string) (calendar.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.data.Clone()
	list, err := columnAt(&next, weekIndex, column)
	if err != nil {
		return calendar.Activity{}, err
	}
	act := calendar.Activity{
		ID:    s.generateID(),
		Type:  calendar.TypeLesson,
		Title: DefaultTitle,
	}
	next.Weeks[weekIndex].SetColumn(column, append(list, act))
	s.commit(next)
	return act, nil
}

// UpdateActivity shallow-merges field updates into the addressed activity.
// Setting "link" to the placeholder text clears the field instead of
// storing the placeholder literally.
// PRE: address is valid; updates only names title, link, time, or due
// POST: updated fields hold trimmed values; saver is signalled
func (s *Session) UpdateActivity(weekIndex int, column string, activityIndex int, updates map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.data.Clone()
	act, err := activityAt(&next, weekIndex, column, activityIndex)
	if err != nil {
		return err
	}
	for field, value := range updates {
		value = strings.TrimSpace(value)
		switch field {
		case "title":
			act.Title = value
		case "link":
			if value == NoLinkPlaceholder {
				act.Link = ""
			} else {
				act.Link = value
			}
		case "time":
			act.Time = value
		case "due":
			act.Due = value
		default:
			return fmt.Errorf("activity field %q: %w", field, ErrUnknownField)
		}
	}
	s.commit(next)
	return nil
}

// ChangeActivityType sets the activity's type. Fields made irrelevant by
// the new type (link/time/due on a cancelled class) are kept; the view
// just stops rendering them.
// PRE: address is valid; newType is a known type
// POST: type is updated; saver is signalled
func (s *Session) ChangeActivityType(weekIndex int, column string, activityIndex int, newType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !calendar.IsValidType(newType) {
		return fmt.Errorf("type %q: %w", newType, calendar.ErrInvalidType)
	}
	next := s.data.Clone()
	act, err := activityAt(&next, weekIndex, column, activityIndex)
	if err != nil {
		return err
	}
	act.Type = newType
	s.commit(next)
	return nil
}

// DeleteActivity removes one activity. Confirmation is the UI's concern;
// by the time this is called the decision is made.
// PRE: address is valid
// POST: the column has one fewer activity, relative order preserved
func (s *Session) DeleteActivity(weekIndex int, column string, activityIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.data.Clone()
	list, err := columnAt(&next, weekIndex, column)
	if err != nil {
		return err
	}
	if activityIndex < 0 || activityIndex >= len(list) {
		return fmt.Errorf("activity %d: %w", activityIndex, ErrActivityIndex)
	}
	list = append(list[:activityIndex], list[activityIndex+1:]...)
	next.Weeks[weekIndex].SetColumn(column, list)
	s.commit(next)
	return nil
}

// DuplicateActivity deep-clones the addressed activity under a new id and
// inserts the copy immediately after the source.
// PRE: address is valid
// POST: copy sits at activityIndex+1; its id differs from every existing id
func (s *Session) DuplicateActivity(weekIndex int, column string, activityIndex int) (calendar.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.data.Clone()
	list, err := columnAt(&next, weekIndex, column)
	if err != nil {
		return calendar.Activity{}, err
	}
	if activityIndex < 0 || activityIndex >= len(list) {
		return calendar.Activity{}, fmt.Errorf("activity %d: %w", activityIndex, ErrActivityIndex)
	}
	clone := list[activityIndex]
	clone.ID = s.generateID()

	list = append(list, calendar.Activity{})
	copy(list[activityIndex+2:], list[activityIndex+1:])
	list[activityIndex+1] = clone
	next.Weeks[weekIndex].SetColumn(column, list)
	s.commit(next)
	return clone, nil
}

// AddWeek appends a week starting exactly 7 days after the last one, with
// a derived uppercase label ("W05 - JAN 12") and three empty columns.
// PRE: the calendar has at least one week with a parseable start date
// POST: the new week is last; saver is signalled
func (s *Session) AddWeek() (calendar.Week, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.data.Clone()
	if len(next.Weeks) == 0 {
		return calendar.Week{}, ErrNoWeeks
	}
	last := next.Weeks[len(next.Weeks)-1]
	lastStart, err := time.Parse(calendar.DateLayout, last.StartDate)
	if err != nil {
		return calendar.Week{}, fmt.Errorf("start date %q: %w", last.StartDate, ErrBadWeekStart)
	}
	start := calendar.NextWeekStart(lastStart)
	week := calendar.Week{
		Week:      calendar.WeekLabel(len(next.Weeks), start),
		StartDate: start.Format(calendar.DateLayout),
		Class1:    []calendar.Activity{},
		Class2:    []calendar.Activity{},
		Homework:  []calendar.Activity{},
	}
	next.Weeks = append(next.Weeks, week)
	s.commit(next)
	return week, nil
}

// DeleteWeek removes one week. Confirmation is the UI's concern.
// PRE: weekIndex addresses an existing week
// POST: the calendar has one fewer week, relative order preserved
func (s *Session) DeleteWeek(weekIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.data.Clone()
	if weekIndex < 0 || weekIndex >= len(next.Weeks) {
		return fmt.Errorf("week %d: %w", weekIndex, ErrWeekIndex)
	}
	next.Weeks = append(next.Weeks[:weekIndex], next.Weeks[weekIndex+1:]...)
	s.commit(next)
	return nil
}

// MoveActivity atomically removes the activity at the source address and
// inserts it at the destination. When source and destination are the same
// list and the source sat before the destination, the destination index is
// decremented by one: the removal shifted everything after the source down
// a slot, and skipping this lands the item one position off.
// PRE: source addresses an activity; destIndex is within 0..len(dest list)
// POST: total activity count across both lists is unchanged
func (s *Session) MoveActivity(srcWeek int, srcColumn string, srcIndex, destWeek int, destColumn string, destIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.data.Clone()
	srcList, err := columnAt(&next, srcWeek, srcColumn)
	if err != nil {
		return err
	}
	if srcIndex < 0 || srcIndex >= len(srcList) {
		return fmt.Errorf("activity %d: %w", srcIndex, ErrActivityIndex)
	}
	destList, err := columnAt(&next, destWeek, destColumn)
	if err != nil {
		return err
	}
	if destIndex < 0 || destIndex > len(destList) {
		return fmt.Errorf("destination %d: %w", destIndex, ErrDestIndex)
	}

	sameList := srcWeek == destWeek && srcColumn == destColumn

	moved := srcList[srcIndex]
	srcList = append(srcList[:srcIndex], srcList[srcIndex+1:]...)
	next.Weeks[srcWeek].SetColumn(srcColumn, srcList)

	insertIndex := destIndex
	if sameList {
		destList = srcList
		if srcIndex < destIndex {
			insertIndex = destIndex - 1
		}
	}

	destList = append(destList, calendar.Activity{})
	copy(destList[insertIndex+1:], destList[insertIndex:])
	destList[insertIndex] = moved
	next.Weeks[destWeek].SetColumn(destColumn, destList)

	s.commit(next)
	return nil
}

// commit replaces the document and signals the saver with a snapshot.
// Caller holds s.mu.
func (s *Session) commit(next calendar.CalendarData) {
	s.data = next
	if s.saver != nil {
		s.saver.Schedule(next.Clone())
	}
}

// columnAt resolves a (week, column) address inside doc.
func columnAt(doc *calendar.CalendarData, weekIndex int, column string) ([]calendar.Activity, error) {
	if weekIndex < 0 || weekIndex >= len(doc.Weeks) {
		return nil, fmt.Errorf("week %d: %w", weekIndex, ErrWeekIndex)
	}
	if !calendar.IsValidColumn(column) {
		return nil, fmt.Errorf("column %q: %w", column, calendar.ErrInvalidColumn)
	}
	return doc.Weeks[weekIndex].Column(column), nil
}

// activityAt resolves a full activity address inside doc, returning a
// pointer into doc so the caller can mutate the addressed entry.
func activityAt(doc *calendar.CalendarData, weekIndex int, column string, activityIndex int) (*calendar.Activity, error) {
	list, err := columnAt(doc, weekIndex, column)
	if err != nil {
		return nil, err
	}
	if activityIndex < 0 || activityIndex >= len(list) {
		return nil, fmt.Errorf("activity %d: %w", activityIndex, ErrActivityIndex)
	}
	return &list[activityIndex], nil
}
