package dataset

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Null values are written as empty cells.

func formatOptString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func parseOptString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func formatOptInt(i *int) string {
	if i == nil {
		return ""
	}
	return strconv.Itoa(*i)
}

// parseOptInt accepts integral floats such as "8.0", which spreadsheet
// round-trips tend to produce.
func parseOptInt(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if i, err := strconv.Atoi(s); err == nil {
		return &i, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return nil, fmt.Errorf("%q is not an integer", s)
	}
	i := int(f)
	return &i, nil
}

func parseInt(s string) (int, error) {
	p, err := parseOptInt(s)
	if err != nil || p == nil {
		return 0, err
	}
	return *p, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// parseTime accepts RFC 3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is not a timestamp", s)
	}
	return time.Unix(int64(f), 0).UTC(), nil
}
