package util

import (
	"strconv"
	"time"
)

// ParseTime tries RFC3339, a bare date, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// AlignToInterval truncates t to its bar boundary for supported intervals.
func AlignToInterval(t time.Time, interval string) time.Time {
	switch interval {
	case "1h":
		return t.Truncate(time.Hour)
	case "1wk":
		// ISO weeks start Monday
		t = t.Truncate(24 * time.Hour)
		offset := (int(t.Weekday()) + 6) % 7
		return t.AddDate(0, 0, -offset)
	default:
		return t.Truncate(24 * time.Hour)
	}
}
