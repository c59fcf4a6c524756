package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var monthAbbrev = []string{
	"JAN", "FEB", "MAR", "APR", "MAY", "JUN",
	"JUL", "AUG", "SEP", "OCT", "NOV", "DEC",
}

// FormatDue formats an ISO date (YYYY-MM-DD) as "JAN 26" for display.
// Splits the string directly instead of going through time.Parse so a date
// typed in one timezone never shifts by a day in another.
// PRE: none
// POST: returns "" for empty or malformed input
func FormatDue(due string) string {
	if due == "" {
		return ""
	}
	parts := strings.Split(due, "-")
	if len(parts) != 3 {
		return ""
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return ""
	}
	day, err := strconv.Atoi(parts[2])
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%s %d", monthAbbrev[month-1], day)
}

// WeekLabel derives the display label for a week appended at the given
// position, e.g. "W05 - JAN 12" for index 5 starting 2026-01-12.
// PRE: index >= 0
// POST: returns an uppercase label matching W{02d} - {MON} {D}
func WeekLabel(index int, start time.Time) string {
	return fmt.Sprintf("W%02d - %s %d", index, monthAbbrev[start.Month()-1], start.Day())
}

// NextWeekStart returns the start date exactly 7 days after the given one.
func NextWeekStart(start time.Time) time.Time {
	return start.AddDate(0, 0, 7)
}
