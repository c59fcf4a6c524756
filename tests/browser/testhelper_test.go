package browser_test

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	_ "modernc.org/sqlite"

	web "coursecal/internal/adapters/http"
	"coursecal/internal/adapters/http/middleware"
	"coursecal/internal/adapters/storage"
	calendarStore "coursecal/internal/adapters/storage/calendar"
	historyStore "coursecal/internal/adapters/storage/history"
	"coursecal/internal/application/editor"
	calendarDomain "coursecal/internal/domain/calendar"
)

const testPassword = "TestPass123!"

// testApp holds the running test server and Playwright handles.
type testApp struct {
	BaseURL  string
	DB       *sql.DB
	Server   *http.Server
	PW       *playwright.Playwright
	Browser  playwright.Browser
	Calendar *calendarStore.FileStore
	History  *historyStore.SQLiteStore
	DataDir  string
}

// newTestApp creates a fully wired app with temp storage and starts an HTTP server.
func newTestApp(t *testing.T) *testApp {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("failed to open test DB: %v", err)
	}
	if err := storage.InitDB(db); err != nil {
		t.Fatalf("failed to initialize test DB: %v", err)
	}

	dataDir := filepath.Join(tmpDir, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		t.Fatalf("failed to create data dir: %v", err)
	}

	calStore := calendarStore.NewFileStore(dataDir)
	histStore := historyStore.NewSQLiteStore(db)

	// Seed a calendar so the editor has something to open.
	if err := calStore.Save(context.Background(), "w26", seedDoc()); err != nil {
		t.Fatalf("failed to seed calendar: %v", err)
	}

	generateID := func() string { return uuid.New().String() }
	manager := editor.NewManager(editor.ManagerConfig{
		Store:      calStore,
		Writer:     web.NewPersistWriter(calStore, histStore, generateID),
		Delay:      300 * time.Millisecond, // short debounce keeps the test fast
		GenerateID: generateID,
	})

	// Find a free port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	// Change to project root so relative template/static paths work
	projectRoot := findProjectRoot(t)
	origDir, _ := os.Getwd()
	if err := os.Chdir(projectRoot); err != nil {
		t.Fatalf("failed to chdir to project root: %v", err)
	}
	t.Cleanup(func() { os.Chdir(origDir) })

	// Add test port to CSRF trusted origins before creating mux
	middleware.ExtraTrustedOrigins = append(middleware.ExtraTrustedOrigins,
		fmt.Sprintf("127.0.0.1:%d", port),
		fmt.Sprintf("localhost:%d", port),
	)

	t.Setenv("COURSECAL_EDITOR_PASSWORD", testPassword)

	mux := web.NewMux("static", &web.Deps{
		CalendarStore: calStore,
		HistoryStore:  histStore,
		Editor:        manager,
		DefaultTerm:   "w26",
	})
	srv := &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", port),
		Handler: mux,
	}
	go func() {
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("test server error: %v", err)
		}
	}()

	// Wait for server to be ready
	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	for i := 0; i < 50; i++ {
		resp, err := http.Get(baseURL + "/login")
		if err == nil {
			resp.Body.Close()
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	// Start Playwright
	pw, err := playwright.Run()
	if err != nil {
		t.Fatalf("failed to start Playwright: %v", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		t.Fatalf("failed to launch browser: %v", err)
	}

	app := &testApp{
		BaseURL:  baseURL,
		DB:       db,
		Server:   srv,
		PW:       pw,
		Browser:  browser,
		Calendar: calStore,
		History:  histStore,
		DataDir:  dataDir,
	}

	t.Cleanup(func() {
		browser.Close()
		pw.Stop()
		srv.Close()
		db.Close()
	})

	return app
}

// seedDoc returns a small two-week calendar.
func seedDoc() calendarDomain.CalendarData {
	return calendarDomain.CalendarData{
		Weeks: []calendarDomain.Week{
			{
				Week:      "W01 - JAN 5",
				StartDate: "2026-01-05",
				Class1: []calendarDomain.Activity{
					{ID: uuid.New().String(), Type: "lesson", Title: "Course introduction"},
					{ID: uuid.New().String(), Type: "quiz", Title: "Quiz 1", Time: "30m"},
				},
				Class2: []calendarDomain.Activity{
					{ID: uuid.New().String(), Type: "exercise", Title: "Exercise 1"},
				},
				Homework: []calendarDomain.Activity{
					{ID: uuid.New().String(), Type: "assignment", Title: "Assignment 1", Due: "2026-01-09"},
				},
			},
			{
				Week:      "W02 - JAN 12",
				StartDate: "2026-01-12",
				Class1:    []calendarDomain.Activity{},
				Class2:    []calendarDomain.Activity{},
				Homework:  []calendarDomain.Activity{},
			},
		},
	}
}

// newPage creates a new browser page (tab).
func (a *testApp) newPage(t *testing.T) playwright.Page {
	t.Helper()
	page, err := a.Browser.NewPage()
	if err != nil {
		t.Fatalf("failed to create page: %v", err)
	}
	t.Cleanup(func() { page.Close() })
	return page
}

// login navigates to the login page and logs in as the editor.
func (a *testApp) login(t *testing.T, page playwright.Page) {
	t.Helper()
	_, err := page.Goto(a.BaseURL + "/login")
	if err != nil {
		t.Fatalf("failed to navigate to login: %v", err)
	}
	if err := page.Locator("input[name=Password]").Fill(testPassword); err != nil {
		t.Fatalf("failed to fill password: %v", err)
	}
	if err := page.Locator("button[type=submit]").Click(); err != nil {
		t.Fatalf("failed to click login: %v", err)
	}
	if err := page.WaitForURL(a.BaseURL+"/editor", playwright.PageWaitForURLOptions{
		Timeout: playwright.Float(10000),
	}); err != nil {
		t.Fatalf("login did not redirect to editor: %v", err)
	}
}

// findProjectRoot walks up from the working directory to find the project root (contains go.mod).
func findProjectRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("could not find project root (go.mod) from working directory")
		}
		dir = parent
	}
}
