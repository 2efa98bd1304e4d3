package timeparsing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wednesday, January 15, 2025, 10:00 UTC.
var now = time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

func TestParseCompactDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"+6h", time.Date(2025, 1, 15, 16, 0, 0, 0, time.UTC)},
		{"-1d", time.Date(2025, 1, 14, 10, 0, 0, 0, time.UTC)},
		{"2w", time.Date(2025, 1, 29, 10, 0, 0, 0, time.UTC)},
		{"-3m", time.Date(2024, 10, 15, 10, 0, 0, 0, time.UTC)},
		{"+1y", time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCompactDuration(tt.in, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "6", "h", "+6x", "6 h", "--1d"} {
		_, err := ParseCompactDuration(bad, now)
		assert.Error(t, err, bad)
		assert.False(t, IsCompactDuration(bad), bad)
	}
}

func TestParseCompactDurationMonthBoundary(t *testing.T) {
	jan31 := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	got, err := ParseCompactDuration("+1m", jan31)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), got, "AddDate normalizes Feb 31")
}

func TestParseRelativeTimeLayers(t *testing.T) {
	got, err := ParseRelativeTime("+1d", now)
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(0, 0, 1), got)

	got, err = ParseRelativeTime("2025-02-01", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), got)

	got, err = ParseRelativeTime("2025-03-15T14:30:00Z", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 15, 14, 30, 0, 0, time.UTC), got)

	got, err = ParseRelativeTime("2025-03-15 08:05", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 15, 8, 5, 0, 0, time.UTC), got)

	_, err = ParseRelativeTime("not-a-date", now)
	assert.Error(t, err)
	_, err = ParseRelativeTime("  ", now)
	assert.Error(t, err)
}

func TestParseNaturalLanguage(t *testing.T) {
	tests := []struct {
		in      string
		wantDay int
	}{
		{"tomorrow", 16},
		{"yesterday", 14},
		{"next monday", 20},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseNaturalLanguage(tt.in, now)
			require.NoError(t, err)
			assert.Equal(t, 2025, got.Year())
			assert.Equal(t, time.January, got.Month())
			assert.Equal(t, tt.wantDay, got.Day())
		})
	}
}

func TestParseSince(t *testing.T) {
	got, err := ParseSince("2w", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC), got, "unsigned looks back")

	got, err = ParseSince("-6h", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 15, 4, 0, 0, 0, time.UTC), got)

	got, err = ParseSince("2024-12-01", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), got)

	got, err = ParseSince("yesterday", now)
	require.NoError(t, err)
	assert.Equal(t, 14, got.Day())

	_, err = ParseSince("2025-06-01", now)
	assert.ErrorContains(t, err, "future")
}
