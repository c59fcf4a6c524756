package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"coursecal/internal/adapters/http/middleware"
	calendarStore "coursecal/internal/adapters/storage/calendar"
	"coursecal/internal/application/editor"
	calendarDomain "coursecal/internal/domain/calendar"
	termDomain "coursecal/internal/domain/term"
)

// timeNow is a variable for testability.
var timeNow = time.Now

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in markdown input is escaped (WithUnsafe is NOT set), preventing XSS.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// notesMarkdown is the course notes block rendered under the viewer legend.
const notesMarkdown = `Quizzes are written in class and your lowest score is dropped.
Assignments are due **end of day Friday** of the week they appear under *Homework*.
Check the linked pages for submission details.`

// generateID creates a new UUID string.
func generateID() string {
	return uuid.New().String()
}

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// jsonError writes a JSON error body. API routes speak JSON even when they
// fail; a plain-text 404 would break the client's response handling.
func jsonError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

const templatesDir = "internal/adapters/http/templates"

func renderTemplate(w http.ResponseWriter, r *http.Request, templateName string, data any) {
	_, loggedIn := middleware.GetSessionFromContext(r.Context())

	funcMap := template.FuncMap{
		"isLoggedIn": func() bool { return loggedIn },
		"csrfToken":  func() string { return csrf.Token(r) },
		"list":       func(items ...string) []string { return items },
		"renderMarkdown": func(md string) template.HTML {
			var buf bytes.Buffer
			if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
				return template.HTML(template.HTMLEscapeString(md))
			}
			return template.HTML(buf.String())
		},
		"formatDue": calendarDomain.FormatDue,
		"termLabel": func(code string) string {
			t := termDomain.Term{Code: code}
			return t.Label()
		},
		"columnList": func(wk calendarDomain.Week, col string) []calendarDomain.Activity { return wk.Column(col) },
		"anyCancelled": func(wk calendarDomain.Week, col string) bool {
			return wk.AnyCancelled(col)
		},
		"isCurrent": func(wk calendarDomain.Week) bool {
			return wk.IsCurrent(timeNow())
		},
		"add": func(a, b int) int { return a + b },
	}

	layoutPath := filepath.Join(templatesDir, "layout.html")
	pagePath := filepath.Join(templatesDir, templateName)
	tpl, err := template.New("layout.html").Funcs(funcMap).ParseFiles(layoutPath, pagePath)
	if err != nil {
		http.Error(w, "Template error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tpl.Execute(w, data); err != nil {
		http.Error(w, "Render error: "+err.Error(), http.StatusInternalServerError)
		return
	}
}

func registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", handleViewer)
	mux.HandleFunc("/editor", handleEditorPage)
	mux.HandleFunc("/login", handleLogin)
	mux.HandleFunc("/logout", handleLogout)
	mux.HandleFunc("/history", handleHistory)
	mux.HandleFunc("/api/terms", handleTerms)
	mux.HandleFunc("/api/calendar/", handleAPICalendar)
}

// resolveTerm picks the term to show: the ?term= query parameter if present,
// otherwise the configured default, otherwise the newest term on disk.
func resolveTerm(r *http.Request) (string, error) {
	if t := r.URL.Query().Get("term"); t != "" {
		candidate := termDomain.Term{Code: t}
		return t, candidate.Validate()
	}
	if deps.DefaultTerm != "" {
		return deps.DefaultTerm, nil
	}
	terms, err := deps.CalendarStore.ListTerms(r.Context())
	if err != nil {
		return "", err
	}
	if len(terms) == 0 {
		return "", calendarStore.ErrNotFound
	}
	return terms[len(terms)-1], nil
}

// handleViewer handles GET / (the read-only weekly calendar).
func handleViewer(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	code, err := resolveTerm(r)
	if err != nil {
		http.Error(w, "no calendar available", http.StatusNotFound)
		return
	}
	data, err := deps.CalendarStore.Load(r.Context(), code)
	if err != nil {
		if errors.Is(err, calendarStore.ErrNotFound) {
			http.Error(w, "no calendar for term "+code, http.StatusNotFound)
			return
		}
		internalError(w, err)
		return
	}
	terms, err := deps.CalendarStore.ListTerms(r.Context())
	if err != nil {
		internalError(w, err)
		return
	}

	renderTemplate(w, r, "viewer.html", map[string]any{
		"Term":  code,
		"Terms": terms,
		"Weeks": data.Weeks,
		"Notes": notesMarkdown,
	})
}

// handleEditorPage handles GET /editor. The page itself is session-gated;
// all document traffic goes through the API routes.
func handleEditorPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := middleware.GetSessionFromContext(r.Context()); !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	code, err := resolveTerm(r)
	if err != nil {
		http.Error(w, "no calendar available", http.StatusNotFound)
		return
	}
	terms, err := deps.CalendarStore.ListTerms(r.Context())
	if err != nil {
		internalError(w, err)
		return
	}

	renderTemplate(w, r, "editor.html", map[string]any{
		"Term":  code,
		"Terms": terms,
	})
}

// handleLogin handles GET (form) and POST (authenticate) for /login
func handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method == "GET" {
		// If already logged in, go straight to the editor
		if _, ok := middleware.GetSessionFromContext(r.Context()); ok {
			http.Redirect(w, r, "/editor", http.StatusSeeOther)
			return
		}
		renderTemplate(w, r, "login.html", map[string]any{
			"CSRFToken": csrf.Token(r),
		})
		return
	}

	if r.Method == "POST" {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}

		if !checkEditorPassword(r.FormValue("Password")) {
			slog.Warn("login_event", "event", "rejected", "remote", r.RemoteAddr)
			renderTemplate(w, r, "login.html", map[string]any{
				"CSRFToken": csrf.Token(r),
				"Error":     "Incorrect password",
			})
			return
		}

		token, err := sessions.Create()
		if err != nil {
			http.Error(w, "Session error", http.StatusInternalServerError)
			return
		}

		middleware.SetSessionCookie(w, token)
		slog.Info("login_event", "event", "accepted")
		http.Redirect(w, r, "/editor", http.StatusSeeOther)
		return
	}

	w.WriteHeader(http.StatusMethodNotAllowed)
}

// handleLogout handles POST /logout
func handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if token := middleware.SessionToken(r); token != "" {
		sessions.Delete(token)
	}

	middleware.ClearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleHistory handles GET /history (session-gated save log).
func handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := middleware.GetSessionFromContext(r.Context()); !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	const historyLimit = 100
	var records any
	var err error
	if term := r.URL.Query().Get("term"); term != "" {
		records, err = deps.HistoryStore.ListByTerm(r.Context(), term, historyLimit)
	} else {
		records, err = deps.HistoryStore.ListRecent(r.Context(), historyLimit)
	}
	if err != nil {
		internalError(w, err)
		return
	}

	renderTemplate(w, r, "history.html", map[string]any{
		"Records": records,
		"Term":    r.URL.Query().Get("term"),
	})
}

// handleTerms handles GET /api/terms. The response is a bare array of term
// codes; it feeds a selector, nothing else.
func handleTerms(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	codes, err := deps.CalendarStore.ListTerms(r.Context())
	if err != nil {
		internalError(w, err)
		return
	}
	if codes == nil {
		codes = []string{}
	}
	writeJSON(w, codes)
}

// handleAPICalendar dispatches /api/calendar/:term and its subroutes.
func handleAPICalendar(w http.ResponseWriter, r *http.Request) {
	// Path shapes: /api/calendar/:term, /api/calendar/:term/edit,
	// /api/calendar/:term/status
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 3 || parts[0] != "api" || parts[1] != "calendar" {
		jsonError(w, http.StatusBadRequest, "invalid path")
		return
	}
	code := parts[2]
	codeTerm := termDomain.Term{Code: code}
	if err := codeTerm.Validate(); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid term code")
		return
	}

	switch {
	case len(parts) == 3:
		switch r.Method {
		case "GET":
			handleGetCalendar(w, r, code)
		case "POST":
			handleSaveCalendar(w, r, code)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case len(parts) == 4 && parts[3] == "edit":
		if r.Method != "POST" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handleEdit(w, r, code)
	case len(parts) == 4 && parts[3] == "status":
		if r.Method != "GET" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handleSaveStatus(w, r, code)
	default:
		jsonError(w, http.StatusNotFound, "not found")
	}
}

// handleGetCalendar handles GET /api/calendar/:term
func handleGetCalendar(w http.ResponseWriter, r *http.Request, code string) {
	data, err := deps.CalendarStore.Load(r.Context(), code)
	if err != nil {
		if errors.Is(err, calendarStore.ErrNotFound) {
			jsonError(w, http.StatusNotFound, "no calendar for term "+code)
			return
		}
		internalError(w, err)
		return
	}
	writeJSON(w, data)
}

// handleSaveCalendar handles POST /api/calendar/:term (whole-document save).
// The body replaces the stored document outright; any live editing session
// for the term is invalidated so it cannot later overwrite this save with
// stale state.
func handleSaveCalendar(w http.ResponseWriter, r *http.Request, code string) {
	if _, ok := middleware.GetSessionFromContext(r.Context()); !ok {
		jsonError(w, http.StatusUnauthorized, "login required")
		return
	}

	var data calendarDomain.CalendarData
	if err := strictDecode(r, &data); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid calendar document: "+err.Error())
		return
	}
	if err := data.Validate(); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	data.EnsureIDs(generateID)

	saveErr := deps.CalendarStore.Save(r.Context(), code, data)
	recordSave(r.Context(), deps.HistoryStore, generateID, code, data, saveErr)
	if saveErr != nil {
		internalError(w, saveErr)
		return
	}
	deps.Editor.Invalidate(code)

	slog.Info("calendar_event", "event", "saved", "term", code,
		"weeks", len(data.Weeks), "activities", data.ActivityCount())
	writeJSON(w, map[string]any{
		"success":   true,
		"timestamp": timeNow().UTC().Format(time.RFC3339),
	})
}

// handleSaveStatus handles GET /api/calendar/:term/status
func handleSaveStatus(w http.ResponseWriter, r *http.Request, code string) {
	if _, ok := middleware.GetSessionFromContext(r.Context()); !ok {
		jsonError(w, http.StatusUnauthorized, "login required")
		return
	}
	status := editor.StatusSaved
	if _, ok := deps.Editor.Current(code); ok {
		status = deps.Editor.Status()
	}
	writeJSON(w, map[string]string{"status": string(status)})
}

// editRequest is one editing operation posted by the editor client.
type editRequest struct {
	Op      string            `json:"op"`
	Week    int               `json:"week"`
	Column  string            `json:"column"`
	Index   int               `json:"index"`
	Field   string            `json:"field"`
	Value   string            `json:"value"`
	Updates map[string]string `json:"updates"`
	Type    string            `json:"type"`
	Gesture *editor.Gesture   `json:"gesture"`
}

// handleEdit handles POST /api/calendar/:term/edit. Each request applies one
// operation to the term's editing session and returns the resulting document
// plus the autosave status, so the client never has to track document state
// beyond what it last received.
func handleEdit(w http.ResponseWriter, r *http.Request, code string) {
	if _, ok := middleware.GetSessionFromContext(r.Context()); !ok {
		jsonError(w, http.StatusUnauthorized, "login required")
		return
	}

	var req editRequest
	if err := strictDecode(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid edit request: "+err.Error())
		return
	}

	session, err := deps.Editor.Open(r.Context(), code)
	if err != nil {
		if errors.Is(err, calendarStore.ErrNotFound) {
			jsonError(w, http.StatusNotFound, "no calendar for term "+code)
			return
		}
		internalError(w, err)
		return
	}

	if err := applyEdit(session, req); err != nil {
		// A drag that started in a form field is suppressed, not failed;
		// the client gets the unchanged document back.
		if !errors.Is(err, editor.ErrEditableOrigin) {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	writeJSON(w, map[string]any{
		"data":       session.Data(),
		"saveStatus": string(deps.Editor.Status()),
	})
}

// applyEdit dispatches one operation onto the session.
func applyEdit(session *editor.Session, req editRequest) error {
	switch req.Op {
	case "updateWeekField":
		return session.UpdateWeekField(req.Week, req.Field, req.Value)
	case "addActivity":
		_, err := session.AddActivity(req.Week, req.Column)
		return err
	case "updateActivity":
		return session.UpdateActivity(req.Week, req.Column, req.Index, req.Updates)
	case "changeActivityType":
		return session.ChangeActivityType(req.Week, req.Column, req.Index, req.Type)
	case "deleteActivity":
		return session.DeleteActivity(req.Week, req.Column, req.Index)
	case "duplicateActivity":
		_, err := session.DuplicateActivity(req.Week, req.Column, req.Index)
		return err
	case "addWeek":
		_, err := session.AddWeek()
		return err
	case "deleteWeek":
		return session.DeleteWeek(req.Week)
	case "moveActivity":
		if req.Gesture == nil {
			return errors.New("moveActivity requires a gesture")
		}
		return session.ApplyDrag(*req.Gesture)
	default:
		return errors.New("unknown operation: " + req.Op)
	}
}
