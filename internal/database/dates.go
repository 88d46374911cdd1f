package database

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-day format used across the API.
const DateLayout = "2006-01-02"

// timestampLayout is the fixed-width UTC layout stored in TEXT columns so that
// lexical order matches chronological order.
const timestampLayout = "2006-01-02T15:04:05Z"

// ParseDate parses a calendar day. Full RFC 3339 timestamps are accepted too;
// the time of day is dropped and the day is the one written in the input's own
// offset.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

// ParseOptionalDate is ParseDate for optional inputs: blank means unset and
// yields nil.
func ParseOptionalDate(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FormatDate formats a time as YYYY-MM-DD in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// StartOfDay truncates t to midnight UTC of its calendar day.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// FormatHumanRange formats two days for display.
// Same day: "January 2, 2006"; otherwise "January 2, 2006 to January 9, 2006".
func FormatHumanRange(start, end time.Time) string {
	const human = "January 2, 2006"
	if FormatDate(start) == FormatDate(end) {
		return start.UTC().Format(human)
	}
	return fmt.Sprintf("%s to %s", start.UTC().Format(human), end.UTC().Format(human))
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(timestampLayout, s); err == nil {
		return t, nil
	}
	// Rows written by other tools may carry fractional seconds or offsets.
	return time.Parse(time.RFC3339Nano, s)
}
