package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	web "coursecal/internal/adapters/http"
	"coursecal/internal/adapters/storage"
	calendarStorePkg "coursecal/internal/adapters/storage/calendar"
	historyStorePkg "coursecal/internal/adapters/storage/history"
	"coursecal/internal/application/editor"
	calendarDomain "coursecal/internal/domain/calendar"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Calendar documents live as JSON files; only the save-history log
	// needs a database.
	dataDir := envOrDefault("COURSECAL_DATA_DIR", "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatalf("failed to create data directory: %v", err)
	}

	dbPath := envOrDefault("COURSECAL_DB", "coursecal.db")
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("database unreachable: %v", err)
	}
	if err := storage.InitDB(db); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	calStore := calendarStorePkg.NewFileStore(dataDir)
	histStore := historyStorePkg.NewSQLiteStore(db)

	defaultTerm := envOrDefault("COURSECAL_DEFAULT_TERM", "w26")
	if err := seedCalendar(context.Background(), calStore, defaultTerm); err != nil {
		log.Fatalf("failed to seed calendar: %v", err)
	}

	generateID := func() string { return uuid.New().String() }
	manager := editor.NewManager(editor.ManagerConfig{
		Store:      calStore,
		Writer:     web.NewPersistWriter(calStore, histStore, generateID),
		GenerateID: generateID,
	})

	mux := web.NewMux("static", &web.Deps{
		CalendarStore: calStore,
		HistoryStore:  histStore,
		Editor:        manager,
		DefaultTerm:   defaultTerm,
	})

	addr := envOrDefault("COURSECAL_ADDR", ":8080")
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		log.Printf("coursecal %s starting on %s (env=%s, data=%s)", version, addr, envOrDefault("COURSECAL_ENV", "development"), dataDir)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Shut down on SIGINT/SIGTERM. The edit session is flushed first so a
	// pending debounced save is not lost.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := manager.Close(ctx); err != nil {
		log.Printf("flush on shutdown failed: %v", err)
	}
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
}

// seedCalendar writes a starter document for the default term when no
// calendars exist yet, so a fresh install serves a real page.
func seedCalendar(ctx context.Context, store *calendarStorePkg.FileStore, termCode string) error {
	terms, err := store.ListTerms(ctx)
	if err != nil {
		return err
	}
	if len(terms) > 0 {
		return nil
	}

	start, err := time.Parse(calendarDomain.DateLayout, envOrDefault("COURSECAL_TERM_START", "2026-01-05"))
	if err != nil {
		return err
	}

	const weekCount = 13
	data := calendarDomain.CalendarData{Weeks: make([]calendarDomain.Week, 0, weekCount)}
	for i := 0; i < weekCount; i++ {
		data.Weeks = append(data.Weeks, calendarDomain.Week{
			Week:      calendarDomain.WeekLabel(i, start),
			StartDate: start.Format(calendarDomain.DateLayout),
			Class1:    []calendarDomain.Activity{},
			Class2:    []calendarDomain.Activity{},
			Homework:  []calendarDomain.Activity{},
		})
		start = calendarDomain.NextWeekStart(start)
	}
	data.Weeks[0].Class1 = append(data.Weeks[0].Class1, calendarDomain.Activity{
		ID:    uuid.New().String(),
		Type:  calendarDomain.TypeLesson,
		Title: "Course introduction",
	})

	if err := store.Save(ctx, termCode, data); err != nil {
		return err
	}
	log.Printf("Seeded starter calendar for term %s (%d weeks)", termCode, weekCount)
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
