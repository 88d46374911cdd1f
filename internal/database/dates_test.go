package database

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2000-01-01", "2000-01-01", true},
		{" 1977-08-14 ", "1977-08-14", true},
		{"1977-08-14T18:30:00Z", "1977-08-14", true},
		{"2000-01-01T23:00:00-05:00", "2000-01-01", true},
		{"2000-01-02T01:00:00+09:00", "2000-01-02", true},
		{"08/14/1977", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.in)
		if tt.ok != (err == nil) {
			t.Errorf("ParseDate(%q) error = %v, want ok=%v", tt.in, err, tt.ok)
			continue
		}
		if tt.ok && FormatDate(got) != tt.want {
			t.Errorf("ParseDate(%q) = %s, want %s", tt.in, FormatDate(got), tt.want)
		}
		if tt.ok && (got.Hour() != 0 || got.Minute() != 0) {
			t.Errorf("ParseDate(%q) kept time of day: %v", tt.in, got)
		}
	}
}

func TestParseOptionalDate(t *testing.T) {
	for _, in := range []string{"", "   "} {
		got, err := ParseOptionalDate(in)
		if err != nil || got != nil {
			t.Errorf("ParseOptionalDate(%q) = %v, %v; want nil, nil", in, got, err)
		}
	}

	got, err := ParseOptionalDate("1977-08-14")
	if err != nil || got == nil || FormatDate(*got) != "1977-08-14" {
		t.Errorf("ParseOptionalDate(1977-08-14) = %v, %v", got, err)
	}

	if _, err := ParseOptionalDate("yesterday"); err == nil {
		t.Error("expected error for invalid date")
	}
}

func TestFormatHumanRange(t *testing.T) {
	start := time.Date(1977, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(1977, 8, 14, 0, 0, 0, 0, time.UTC)

	if got := FormatHumanRange(start, end); got != "August 1, 1977 to August 14, 1977" {
		t.Errorf("unexpected range: %q", got)
	}
	if got := FormatHumanRange(start, start); got != "August 1, 1977" {
		t.Errorf("unexpected single day: %q", got)
	}
}

func TestSQLiteDialectClause(t *testing.T) {
	clause, args := SQLiteDialect{}.CaseInsensitiveContains("title", "Fifty_50%")
	if clause != `unicode_lower(title) LIKE ? ESCAPE '\'` {
		t.Errorf("unexpected clause: %s", clause)
	}
	if len(args) != 1 || args[0] != `%fifty\_50\%%` {
		t.Errorf("unexpected args: %v", args)
	}
}
