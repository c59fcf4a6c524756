package editor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"coursecal/internal/domain/calendar"
)

// DocumentStore loads whole calendar documents by term. The calendar file
// store satisfies it.
type DocumentStore interface {
	Load(ctx context.Context, term string) (calendar.CalendarData, error)
}

// Manager owns the active edit session. There is one editor and one active
// term at a time; opening a different term flushes the previous term's
// unsaved state before the new document is loaded fresh. Loads never merge
// with anything in memory.
type Manager struct {
	mu         sync.Mutex
	store      DocumentStore
	writer     Writer
	delay      time.Duration
	generateID func() string
	active     *Session
	autosaver  *Autosaver
}

// ManagerConfig holds the manager's dependencies.
type ManagerConfig struct {
	Store      DocumentStore
	Writer     Writer
	Delay      time.Duration // 0 means DefaultDebounce
	GenerateID func() string
}

// NewManager creates a session manager.
// PRE: cfg.Store, cfg.Writer, and cfg.GenerateID are non-nil
// POST: no session is active
func NewManager(cfg ManagerConfig) *Manager {
	return &Manager{
		store:      cfg.Store,
		writer:     cfg.Writer,
		delay:      cfg.Delay,
		generateID: cfg.GenerateID,
	}
}

// Open returns the session for a term, loading it if it is not the active
// one. Switching terms flushes the outgoing session's pending save first,
// so its last edits reach the store before the session is dropped.
// PRE: termCode is a valid term code
// POST: the returned session is the active one for termCode
func (m *Manager) Open(ctx context.Context, termCode string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil && m.active.Term() == termCode {
		return m.active, nil
	}

	if m.active != nil {
		if err := m.autosaver.Flush(ctx); err != nil {
			// The outgoing term's write failed; the new term still loads.
			// The failure is already recorded in the save history.
			slog.Error("editor_event", "event", "flush_on_switch_failed", "term", m.active.Term(), "error", err.Error())
		}
	}

	data, err := m.store.Load(ctx, termCode)
	if err != nil {
		return nil, fmt.Errorf("open term %q: %w", termCode, err)
	}

	m.autosaver = NewAutosaver(termCode, m.writer, m.delay)
	m.active = NewSession(termCode, data, SessionConfig{
		Saver:      m.autosaver,
		GenerateID: m.generateID,
	})
	slog.Info("editor_event", "event", "term_opened", "term", termCode, "weeks", len(data.Weeks))
	return m.active, nil
}

// Current returns the active session for a term, if that term is active.
// It never loads; use Open when switching terms.
func (m *Manager) Current(termCode string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil || m.active.Term() != termCode {
		return nil, false
	}
	return m.active, true
}

// Status returns the save status for the active session.
// POST: StatusSaved when no session is active
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.autosaver == nil {
		return StatusSaved
	}
	return m.autosaver.Status()
}

// Invalidate drops the active session for a term without saving, cancelling
// any pending timer. Used when the document is replaced behind the
// session's back by a whole-document API save.
// PRE: none
// POST: no session is active for termCode
func (m *Manager) Invalidate(termCode string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil || m.active.Term() != termCode {
		return
	}
	m.autosaver.Stop()
	m.active = nil
	m.autosaver = nil
}

// Close flushes and drops the active session. Called on shutdown.
// PRE: none
// POST: no session is active; pending state has been written
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil
	}
	err := m.autosaver.Flush(ctx)
	m.active = nil
	m.autosaver = nil
	return err
}
