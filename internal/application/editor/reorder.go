package editor

import (
	"fmt"

	"coursecal/internal/domain/calendar"
)

// Address identifies one activity by its current position. Positions are
// addressing only; they are not identity. An activity's id survives a move,
// its address does not.
type Address struct {
	Week   int    `json:"week"`
	Column string `json:"column"`
	Index  int    `json:"index"`
}

// DropTarget is where a drag was released: either on a specific activity
// (the dragged item is inserted at that activity's position, pushing it
// down) or on the empty tail of a list (Tail set, Index ignored — append).
type DropTarget struct {
	Week   int    `json:"week"`
	Column string `json:"column"`
	Index  int    `json:"index"`
	Tail   bool   `json:"tail"`
}

// Gesture is one completed drag: pick up the activity at Source, release
// over Target. FromEditable marks a drag that started inside a text field,
// select, or date input on the card; those must not move anything, or
// normal text selection inside the card would be impossible.
type Gesture struct {
	Source       Address    `json:"source"`
	Target       DropTarget `json:"target"`
	FromEditable bool       `json:"fromEditable"`
}

// Move is the resolved MoveActivity call for a gesture.
type Move struct {
	Source     Address
	DestWeek   int
	DestColumn string
	DestIndex  int
}

// ResolveDrag translates a gesture into a Move against the given document.
// The same-list index adjustment is not applied here; that belongs to
// MoveActivity, which sees the authoritative list state.
// PRE: doc is the document the gesture's positions refer to
// POST: returns ErrEditableOrigin for suppressed gestures, an addressing
// error for stale positions, and a valid Move otherwise
func ResolveDrag(g Gesture, doc calendar.CalendarData) (Move, error) {
	if g.FromEditable {
		return Move{}, ErrEditableOrigin
	}

	srcList, err := columnAt(&doc, g.Source.Week, g.Source.Column)
	if err != nil {
		return Move{}, err
	}
	if g.Source.Index < 0 || g.Source.Index >= len(srcList) {
		return Move{}, fmt.Errorf("activity %d: %w", g.Source.Index, ErrActivityIndex)
	}

	destList, err := columnAt(&doc, g.Target.Week, g.Target.Column)
	if err != nil {
		return Move{}, err
	}

	destIndex := g.Target.Index
	if g.Target.Tail {
		destIndex = len(destList)
	} else if destIndex < 0 || destIndex >= len(destList) {
		return Move{}, fmt.Errorf("destination %d: %w", destIndex, ErrDestIndex)
	}

	return Move{
		Source:     g.Source,
		DestWeek:   g.Target.Week,
		DestColumn: g.Target.Column,
		DestIndex:  destIndex,
	}, nil
}

// ApplyDrag resolves a gesture against the session's current document and
// applies the resulting move as one atomic mutation.
// PRE: none
// POST: on success the activity has moved and the saver is signalled;
// suppressed or stale gestures leave the document untouched
func (s *Session) ApplyDrag(g Gesture) error {
	move, err := ResolveDrag(g, s.Data())
	if err != nil {
		return err
	}
	return s.MoveActivity(move.Source.Week, move.Source.Column, move.Source.Index,
		move.DestWeek, move.DestColumn, move.DestIndex)
}
