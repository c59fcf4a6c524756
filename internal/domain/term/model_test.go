package term_test

import (
	"testing"

	"coursecal/internal/domain/term"
)

// TestTerm_Validate tests term code validation.
func TestTerm_Validate(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantErr bool
	}{
		{"winter code", "w26", false},
		{"fall code", "f24", false},
		{"long but safe code", "pilot-2026", false},
		{"empty", "", true},
		{"uppercase", "W26", true},
		{"path separator", "w26/../etc", true},
		{"leading whitespace", " w26", true},
		{"too long", "abcdefghijklmnopq", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm := term.Term{Code: tt.code}
			err := tm.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Term.Validate(%q) error = %v, wantErr %v", tt.code, err, tt.wantErr)
			}
		})
	}
}

// TestTerm_Label tests display label derivation.
func TestTerm_Label(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{"winter", "w26", "Winter 2026"},
		{"fall", "f24", "Fall 2024"},
		{"spring", "s25", "Spring 2025"},
		{"outside convention", "pilot-2026", "pilot-2026"},
		{"unknown season letter", "x26", "x26"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm := term.Term{Code: tt.code}
			if got := tm.Label(); got != tt.want {
				t.Errorf("Term.Label(%q) = %q, want %q", tt.code, got, tt.want)
			}
		})
	}
}

// TestTerm_Filename tests the document naming convention.
func TestTerm_Filename(t *testing.T) {
	tm := term.Term{Code: "w26"}
	if got := tm.Filename(); got != "calendar-w26.json" {
		t.Errorf("Term.Filename() = %q, want calendar-w26.json", got)
	}
}
