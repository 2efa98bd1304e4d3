// Package timeparsing turns the --updated-since argument into a point in time.
//
// Inputs are tried in layers, first match wins:
//  1. Compact duration (6h, 2w, -1d, +3m)
//  2. Absolute date or timestamp (2025-02-01, RFC3339)
//  3. Natural language (yesterday, last monday, 3 days ago)
package timeparsing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// compactDurationRe matches [+-]?(\d+)([hdwmy]).
var compactDurationRe = regexp.MustCompile(`^([+-]?)(\d+)([hdwmy])$`)

var absoluteLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	time.DateOnly,
}

var nlp = newNLP()

func newNLP() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// IsCompactDuration reports whether s uses the compact duration syntax.
func IsCompactDuration(s string) bool {
	return compactDurationRe.MatchString(s)
}

// ParseCompactDuration applies a compact duration to now. Units are h, d, w,
// m (months) and y. An unsigned amount moves forward.
func ParseCompactDuration(s string, now time.Time) (time.Time, error) {
	amount, unit, err := splitCompact(s)
	if err != nil {
		return time.Time{}, err
	}
	return applyDuration(now, amount, unit), nil
}

// ParseSince parses a lower time bound. Unlike ParseRelativeTime, an
// unsigned compact duration looks back: "2w" means two weeks ago.
func ParseSince(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if IsCompactDuration(s) {
		amount, unit, err := splitCompact(s)
		if err != nil {
			return time.Time{}, err
		}
		if !strings.HasPrefix(s, "+") && amount > 0 {
			amount = -amount
		}
		return applyDuration(now, amount, unit), nil
	}
	t, err := ParseRelativeTime(s, now)
	if err != nil {
		return time.Time{}, err
	}
	if t.After(now) {
		return time.Time{}, fmt.Errorf("%q is in the future", s)
	}
	return t, nil
}

// ParseRelativeTime tries each layer in order and returns the first match.
// Date-only and zone-less inputs are read in now's location.
func ParseRelativeTime(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time expression")
	}
	if IsCompactDuration(s) {
		return ParseCompactDuration(s, now)
	}
	if t, ok := parseAbsolute(s, now.Location()); ok {
		return t, nil
	}
	return ParseNaturalLanguage(s, now)
}

// ParseNaturalLanguage parses English expressions relative to now.
func ParseNaturalLanguage(s string, now time.Time) (time.Time, error) {
	r, err := nlp.Parse(s, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q: %w", s, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("unrecognized time expression %q", s)
	}
	return r.Time, nil
}

func parseAbsolute(s string, loc *time.Location) (time.Time, bool) {
	for _, layout := range absoluteLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func splitCompact(s string) (int, string, error) {
	m := compactDurationRe.FindStringSubmatch(s)
	if m == nil {
		return 0, "", fmt.Errorf("not a compact duration: %q", s)
	}
	amount, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, "", fmt.Errorf("invalid duration amount: %q", m[2])
	}
	if m[1] == "-" {
		amount = -amount
	}
	return amount, m[3], nil
}

func applyDuration(base time.Time, amount int, unit string) time.Time {
	switch unit {
	case "h":
		return base.Add(time.Duration(amount) * time.Hour)
	case "d":
		return base.AddDate(0, 0, amount)
	case "w":
		return base.AddDate(0, 0, amount*7)
	case "m":
		return base.AddDate(0, amount, 0)
	case "y":
		return base.AddDate(amount, 0, 0)
	}
	return base
}
