package jira

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// timestampLayouts covers what Jira Cloud and Server emit for created,
// updated and comment times, e.g. 2024-01-15T10:30:00.000+0000.
var timestampLayouts = []string{
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	time.RFC3339Nano,
}

// ParseTimestamp parses a Jira timestamp and returns it in UTC.
func ParseTimestamp(ts string) (time.Time, error) {
	if ts == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", ts)
}

// ParseDate parses a date-only field such as duedate ("2024-01-15").
func ParseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, fmt.Errorf("unrecognized date format: %s", s)
	}
	return &t, nil
}

// jqlTime formats t for a JQL date comparison.
func jqlTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04")
}

// jqlQuote quotes a JQL string literal.
func jqlQuote(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}
