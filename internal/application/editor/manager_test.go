package editor_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"coursecal/internal/application/editor"
	"coursecal/internal/domain/calendar"
)

// mockDocStore serves canned documents by term.
type mockDocStore struct {
	docs map[string]calendar.CalendarData
}

// Load implements editor.DocumentStore.
// PRE: valid parameters
// POST: returns the canned document or an error for unknown terms
func (m *mockDocStore) Load(_ context.Context, term string) (calendar.CalendarData, error) {
	doc, ok := m.docs[term]
	if !ok {
		return calendar.CalendarData{}, fmt.Errorf("term %q: not found", term)
	}
	return doc, nil
}

func newTestManager(w editor.Writer) *editor.Manager {
	return editor.NewManager(editor.ManagerConfig{
		Store: &mockDocStore{docs: map[string]calendar.CalendarData{
			"w26": twoWeekDoc(),
			"f25": docWithLabel("fall week"),
		}},
		Writer:     w,
		Delay:      time.Hour, // flushes drive all writes in these tests
		GenerateID: idSequence(),
	})
}

// TestManager_OpenLoadsAndReuses tests that reopening the active term does
// not reload it.
func TestManager_OpenLoadsAndReuses(t *testing.T) {
	m := newTestManager(&mockWriter{})
	ctx := context.Background()

	s1, err := m.Open(ctx, "w26")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := s1.AddActivity(0, calendar.ColumnClass2); err != nil {
		t.Fatal(err)
	}

	s2, err := m.Open(ctx, "w26")
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if s1 != s2 {
		t.Error("reopening the active term replaced the session")
	}
	if len(s2.Data().Weeks[0].Class2) != 2 {
		t.Error("reopen lost the in-memory edit")
	}
}

// TestManager_SwitchFlushesPreviousTerm tests that the outgoing term's
// dirty state reaches the writer before the new term loads.
func TestManager_SwitchFlushesPreviousTerm(t *testing.T) {
	w := &mockWriter{}
	m := newTestManager(w)
	ctx := context.Background()

	s, err := m.Open(ctx, "w26")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddActivity(0, calendar.ColumnClass1); err != nil {
		t.Fatal(err)
	}

	if _, err := m.Open(ctx, "f25"); err != nil {
		t.Fatalf("switch failed: %v", err)
	}

	if w.count() != 1 {
		t.Fatalf("expected 1 flush write on switch, got %d", w.count())
	}
	if w.terms[0] != "w26" {
		t.Errorf("flush wrote term %s, want w26", w.terms[0])
	}
	if len(w.last().Weeks[0].Class1) != 5 {
		t.Error("flush did not carry the dirty edit")
	}
}

// TestManager_SwitchWithCleanSession tests that a clean switch writes
// nothing.
func TestManager_SwitchWithCleanSession(t *testing.T) {
	w := &mockWriter{}
	m := newTestManager(w)
	ctx := context.Background()

	if _, err := m.Open(ctx, "w26"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Open(ctx, "f25"); err != nil {
		t.Fatal(err)
	}
	if w.count() != 0 {
		t.Errorf("clean switch wrote %d times", w.count())
	}
}

// TestManager_LoadSupersedesInMemory tests that switching back to a term
// loads it fresh from the store rather than merging.
func TestManager_LoadSupersedesInMemory(t *testing.T) {
	store := &mockDocStore{docs: map[string]calendar.CalendarData{
		"w26": twoWeekDoc(),
		"f25": docWithLabel("fall week"),
	}}
	m := editor.NewManager(editor.ManagerConfig{
		Store:      store,
		Writer:     &mockWriter{},
		Delay:      time.Hour,
		GenerateID: idSequence(),
	})
	ctx := context.Background()

	s, err := m.Open(ctx, "w26")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddActivity(0, calendar.ColumnClass1); err != nil {
		t.Fatal(err)
	}

	if _, err := m.Open(ctx, "f25"); err != nil {
		t.Fatal(err)
	}
	s, err = m.Open(ctx, "w26")
	if err != nil {
		t.Fatal(err)
	}
	// The store's document has 4 class1 activities; the flushed edit went to
	// the mock writer, not back into the store, so the reload sees 4 again.
	if got := len(s.Data().Weeks[0].Class1); got != 4 {
		t.Errorf("reload merged in-memory state: %d activities", got)
	}
}

// TestManager_Current tests active-term lookup without loading.
func TestManager_Current(t *testing.T) {
	m := newTestManager(&mockWriter{})

	if _, ok := m.Current("w26"); ok {
		t.Error("Current reported a session before any Open")
	}
	if _, err := m.Open(context.Background(), "w26"); err != nil {
		t.Fatal(err)
	}
	if _, ok := m.Current("w26"); !ok {
		t.Error("Current missed the active session")
	}
	if _, ok := m.Current("f25"); ok {
		t.Error("Current returned a session for an inactive term")
	}
}

// TestManager_Invalidate tests that a whole-document save drops the session
// without writing.
func TestManager_Invalidate(t *testing.T) {
	w := &mockWriter{}
	m := newTestManager(w)
	ctx := context.Background()

	s, err := m.Open(ctx, "w26")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddActivity(0, calendar.ColumnClass1); err != nil {
		t.Fatal(err)
	}

	m.Invalidate("w26")
	if _, ok := m.Current("w26"); ok {
		t.Error("invalidated session still active")
	}
	if w.count() != 0 {
		t.Errorf("invalidate wrote %d times", w.count())
	}
}

// TestManager_CloseFlushes tests shutdown flushing.
func TestManager_CloseFlushes(t *testing.T) {
	w := &mockWriter{}
	m := newTestManager(w)
	ctx := context.Background()

	s, err := m.Open(ctx, "w26")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddActivity(0, calendar.ColumnClass1); err != nil {
		t.Fatal(err)
	}

	if err := m.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if w.count() != 1 {
		t.Errorf("expected 1 write on close, got %d", w.count())
	}
	if err := m.Close(ctx); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

// TestManager_OpenUnknownTerm tests load failure propagation.
func TestManager_OpenUnknownTerm(t *testing.T) {
	m := newTestManager(&mockWriter{})

	if _, err := m.Open(context.Background(), "x99"); err == nil {
		t.Error("expected error for unknown term")
	}
	var s *editor.Session
	if s, _ = m.Current("x99"); s != nil {
		t.Error("failed open left an active session")
	}
}

// TestManager_StatusTracksAutosaver tests the status passthrough.
func TestManager_StatusTracksAutosaver(t *testing.T) {
	m := newTestManager(&mockWriter{})

	if got := m.Status(); got != editor.StatusSaved {
		t.Errorf("idle manager status = %s, want saved", got)
	}
	s, err := m.Open(context.Background(), "w26")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddActivity(0, calendar.ColumnClass1); err != nil {
		t.Fatal(err)
	}
	if got := m.Status(); got != editor.StatusSaving {
		t.Errorf("dirty manager status = %s, want saving", got)
	}
}
