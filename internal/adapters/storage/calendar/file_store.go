package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	domain "coursecal/internal/domain/calendar"
	termDomain "coursecal/internal/domain/term"
)

const (
	filePrefix = "calendar-"
	fileSuffix = ".json"
)

// FileStore implements Store with one JSON file per term in a flat
// directory, named calendar-<term>.json. Files are written pretty-printed
// with tab indentation so they stay hand-editable.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore rooted at dir.
// PRE: dir exists and is writable
// POST: store is ready for use
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Load reads and decodes the document for a term.
// PRE: term is a valid term code
// POST: returns ErrNotFound if no file exists; decode errors are wrapped
func (s *FileStore) Load(_ context.Context, term string) (domain.CalendarData, error) {
	var data domain.CalendarData
	path, err := s.path(term)
	if err != nil {
		return data, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return data, fmt.Errorf("term %q: %w", term, ErrNotFound)
		}
		return data, fmt.Errorf("read calendar for term %q: %w", term, err)
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return data, fmt.Errorf("decode calendar for term %q: %w", term, err)
	}
	return data, nil
}

// Save encodes and writes the whole document for a term, overwriting any
// existing file. The write goes through a temp file and rename so a crash
// mid-write cannot leave a truncated document behind.
// PRE: term is a valid term code
// POST: calendar-<term>.json holds the new document
func (s *FileStore) Save(_ context.Context, term string, data domain.CalendarData) error {
	path, err := s.path(term)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "\t")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("encode calendar for term %q: %w", term, err)
	}

	tmp, err := os.CreateTemp(s.dir, filePrefix+term+".tmp-*")
	if err != nil {
		return fmt.Errorf("write calendar for term %q: %w", term, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write calendar for term %q: %w", term, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write calendar for term %q: %w", term, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write calendar for term %q: %w", term, err)
	}
	return nil
}

// ListTerms returns the term codes of all documents in the directory,
// sorted for a stable selector order.
// PRE: none
// POST: returns an empty slice when no documents exist
func (s *FileStore) ListTerms(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list calendar terms: %w", err)
	}
	terms := []string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		code := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
		if code == "" {
			continue
		}
		terms = append(terms, code)
	}
	sort.Strings(terms)
	return terms, nil
}

// path validates the term code and returns the document path. Validation
// here keeps a hostile code from escaping the data directory.
func (s *FileStore) path(code string) (string, error) {
	t := termDomain.Term{Code: code}
	if err := t.Validate(); err != nil {
		return "", fmt.Errorf("term %q: %w", code, err)
	}
	return filepath.Join(s.dir, t.Filename()), nil
}
