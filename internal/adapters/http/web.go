package web

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"

	"coursecal/internal/adapters/http/middleware"
	calendarStore "coursecal/internal/adapters/storage/calendar"
	historyStore "coursecal/internal/adapters/storage/history"
	"coursecal/internal/application/editor"
	calendarDomain "coursecal/internal/domain/calendar"
	historyDomain "coursecal/internal/domain/history"
)

// Deps holds all dependencies the HTTP layer needs.
type Deps struct {
	CalendarStore calendarStore.Store
	HistoryStore  historyStore.Store
	Editor        *editor.Manager
	DefaultTerm   string
}

// Global deps instance (set by NewMux)
var deps *Deps

// Global session store instance
var sessions *middleware.SessionStore

// Global bcrypt hash of the editor password (set by NewMux)
var editorPasswordHash []byte

// RateLimitPerSecond controls the per-IP rate limit. Tests can increase this.
var RateLimitPerSecond = 20

// loadCSRFKey reads the CSRF secret from COURSECAL_CSRF_KEY (hex-encoded,
// 32 bytes). In production the key MUST be set; in development a random key
// is generated per startup.
func loadCSRFKey() []byte {
	if keyHex := os.Getenv("COURSECAL_CSRF_KEY"); keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil || len(key) != 32 {
			log.Fatal("COURSECAL_CSRF_KEY must be 64 hex characters (32 bytes)")
		}
		return key
	}
	if os.Getenv("COURSECAL_ENV") == "production" {
		log.Fatal("COURSECAL_CSRF_KEY is required in production")
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		log.Fatalf("failed to generate CSRF key: %v", err)
	}
	log.Println("WARNING: using random CSRF key (sessions won't survive restart). Set COURSECAL_CSRF_KEY for production.")
	return key
}

// loadEditorPassword resolves the editor password to a bcrypt hash.
// COURSECAL_EDITOR_PASSWORD_HASH takes precedence; otherwise the plaintext
// COURSECAL_EDITOR_PASSWORD is hashed at startup.
func loadEditorPassword() []byte {
	if h := os.Getenv("COURSECAL_EDITOR_PASSWORD_HASH"); h != "" {
		return []byte(h)
	}
	pw := os.Getenv("COURSECAL_EDITOR_PASSWORD")
	if pw == "" {
		if os.Getenv("COURSECAL_ENV") == "production" {
			log.Fatal("COURSECAL_EDITOR_PASSWORD is required in production")
		}
		pw = "course-calendar"
		log.Println("WARNING: using default editor password. Set COURSECAL_EDITOR_PASSWORD.")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash editor password: %v", err)
	}
	return hash
}

// checkEditorPassword compares a candidate password against the configured
// hash.
func checkEditorPassword(candidate string) bool {
	return bcrypt.CompareHashAndPassword(editorPasswordHash, []byte(candidate)) == nil
}

// NewMux wires HTTP handlers for the app.
func NewMux(staticDir string, d *Deps) http.Handler {
	deps = d
	sessions = middleware.NewSessionStore()
	editorPasswordHash = loadEditorPassword()
	middleware.SecureCookies = os.Getenv("COURSECAL_ENV") == "production"

	mux := http.NewServeMux()
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	registerRoutes(mux)

	csrfKey := loadCSRFKey()
	limiter := middleware.NewRateLimiter(RateLimitPerSecond, time.Second)

	// Order matters: Timing -> SecurityHeaders -> CSRF -> Auth -> RateLimit -> Mux
	return middleware.Chain(mux,
		middleware.Timing(),
		middleware.SecurityHeaders,
		middleware.CSRF(csrfKey, []string{"localhost:8080", "127.0.0.1:8080"}),
		middleware.Auth(sessions),
		middleware.RateLimit(limiter),
	)
}

// NewPersistWriter returns the editor's document writer: every autosave
// write lands in the calendar store and leaves one row in the save-history
// log, successful or not.
func NewPersistWriter(store calendarStore.Store, history historyStore.Store, generateID func() string) editor.Writer {
	return editor.WriterFunc(func(ctx context.Context, term string, data calendarDomain.CalendarData) error {
		saveErr := store.Save(ctx, term, data)
		recordSave(ctx, history, generateID, term, data, saveErr)
		return saveErr
	})
}

// recordSave appends a save record. History failures are logged, never
// propagated; the document write is the operation that matters.
func recordSave(ctx context.Context, history historyStore.Store, generateID func() string, term string, data calendarDomain.CalendarData, saveErr error) {
	if history == nil {
		return
	}
	rec := historyDomain.Record{
		ID:         generateID(),
		Term:       term,
		SavedAt:    time.Now(),
		Weeks:      len(data.Weeks),
		Activities: data.ActivityCount(),
		Outcome:    historyDomain.OutcomeSaved,
	}
	if raw, err := json.MarshalIndent(data, "", "\t"); err == nil {
		rec.Bytes = len(raw)
	}
	if saveErr != nil {
		rec.Outcome = historyDomain.OutcomeFailed
		rec.Detail = saveErr.Error()
	}
	if err := history.Save(ctx, rec); err != nil {
		slog.Error("history_event", "event", "record_failed", "term", term, "error", err.Error())
	}
}
