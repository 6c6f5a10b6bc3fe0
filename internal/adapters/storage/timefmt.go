package storage

import (
	"fmt"
	"time"
)

// TimeLayout is how timestamps are stored in TEXT columns.
const TimeLayout = "2006-01-02T15:04:05.999999999Z07:00"

// FormatTime renders t for storage. The zero time becomes "".
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeLayout)
}

// NullableTime renders t for a nullable column. The zero time becomes NULL.
func NullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return FormatTime(t)
}

// ParseTime reads a stored timestamp, accepting the layouts SQLite itself writes.
// "" parses to the zero time.
func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	formats := []string{
		TimeLayout,
		time.RFC3339,
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse time: %s", s)
}
