package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrUnparseableTime = errors.New("unparseable_timestamp")

// timestampLayouts are tried in order; sources are inconsistent about
// whether they emit full timestamps or bare dates.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses a source timestamp string into UTC.
func ParseTimestamp(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrUnparseableTime)
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseableTime, raw)
}

// ParseDate parses a source date string, truncating any time component.
func ParseDate(raw string) (time.Time, error) {
	t, err := ParseTimestamp(raw)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}
