package editor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"coursecal/internal/domain/calendar"
)

// DefaultDebounce is the delay between the last mutation and the write it
// triggers. Long enough to collapse a typing burst or a run of drag moves
// into one write, short enough to feel immediate.
const DefaultDebounce = 1000 * time.Millisecond

// Status is the autosave state shown to the editor. A pending timer and an
// in-flight write are both "saving"; the indicator does not distinguish them.
type Status string

const (
	StatusSaved  Status = "saved"
	StatusSaving Status = "saving"
	StatusError  Status = "error"
)

// Writer persists a whole document for a term.
type Writer interface {
	Write(ctx context.Context, term string, data calendar.CalendarData) error
}

// WriterFunc adapts a function to the Writer interface.
type WriterFunc func(ctx context.Context, term string, data calendar.CalendarData) error

// Write implements Writer.
func (f WriterFunc) Write(ctx context.Context, term string, data calendar.CalendarData) error {
	return f(ctx, term, data)
}

// Autosaver debounces document writes for one term. Every Schedule call
// supersedes the previous one: the pending timer is cancelled and restarted,
// so a burst of mutations produces exactly one write, carrying the state at
// fire time. A failed write is not retried in the background; the next
// mutation reschedules a save, which is the retry.
//
// Writes are serialized through a second mutex so a slow in-flight write
// can never complete after a newer one and clobber it with stale data.
type Autosaver struct {
	term   string
	writer Writer
	delay  time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending *calendar.CalendarData
	status  Status

	writeMu sync.Mutex
}

// NewAutosaver creates a coordinator for one term.
// PRE: writer is non-nil
// POST: status is "saved"; delay <= 0 falls back to DefaultDebounce
func NewAutosaver(termCode string, writer Writer, delay time.Duration) *Autosaver {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Autosaver{
		term:   termCode,
		writer: writer,
		delay:  delay,
		status: StatusSaved,
	}
}

// Schedule records the latest document state and (re)starts the debounce
// timer. Called by the session after every mutation.
// PRE: data is a snapshot the caller will not mutate
// POST: status is "saving"; any previously pending timer is cancelled
func (a *Autosaver) Schedule(data calendar.CalendarData) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
	}
	a.pending = &data
	a.status = StatusSaving
	a.timer = time.AfterFunc(a.delay, a.fire)
}

// Status returns the current observable save status.
func (a *Autosaver) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Flush cancels the pending timer and, if a save was pending, writes it
// immediately. Used when the active term changes and on shutdown.
// PRE: none
// POST: no timer is pending; a dirty document has been written (or the
// write error is returned)
func (a *Autosaver) Flush(ctx context.Context) error {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	data := a.pending
	a.pending = nil
	a.mu.Unlock()

	if data == nil {
		return nil
	}
	return a.write(ctx, *data)
}

// Stop cancels the pending timer without writing. In-flight writes are not
// affected; only the not-yet-fired timer is dropped.
// PRE: none
// POST: no timer is pending; unwritten state is discarded
func (a *Autosaver) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.pending = nil
}

// fire runs when the debounce timer elapses.
func (a *Autosaver) fire() {
	a.mu.Lock()
	data := a.pending
	a.pending = nil
	a.timer = nil
	a.mu.Unlock()

	if data == nil {
		return
	}
	a.write(context.Background(), *data)
}

// write performs one serialized document write and updates the status.
func (a *Autosaver) write(ctx context.Context, data calendar.CalendarData) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	err := a.writer.Write(ctx, a.term, data)

	a.mu.Lock()
	switch {
	case a.pending != nil:
		// A newer mutation arrived while writing; its save is still pending.
		a.status = StatusSaving
	case err != nil:
		a.status = StatusError
	default:
		a.status = StatusSaved
	}
	a.mu.Unlock()

	if err != nil {
		slog.Error("autosave_event", "event", "save_failed", "term", a.term, "error", err.Error())
		return err
	}
	slog.Info("autosave_event", "event", "saved", "term", a.term, "weeks", len(data.Weeks), "activities", data.ActivityCount())
	return nil
}
