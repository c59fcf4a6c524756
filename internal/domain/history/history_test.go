package history

import (
	"errors"
	"testing"
	"time"
)

func TestRecord_Validate(t *testing.T) {
	tests := []struct {
		name    string
		record  Record
		wantErr error
	}{
		{
			name:    "valid saved record",
			record:  Record{ID: "r1", Term: "w26", SavedAt: time.Now(), Weeks: 13, Outcome: OutcomeSaved},
			wantErr: nil,
		},
		{
			name:    "valid failed record with detail",
			record:  Record{ID: "r2", Term: "w26", SavedAt: time.Now(), Outcome: OutcomeFailed, Detail: "disk full"},
			wantErr: nil,
		},
		{
			name:    "empty term",
			record:  Record{ID: "r3", Outcome: OutcomeSaved},
			wantErr: ErrEmptyTerm,
		},
		{
			name:    "unknown outcome",
			record:  Record{ID: "r4", Term: "w26", Outcome: "maybe"},
			wantErr: ErrInvalidOutcome,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}
