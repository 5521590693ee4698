package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/medtrack/internal/errors"
)

var now = time.Date(2024, 5, 1, 8, 5, 0, 0, time.Local)

// =============================================================================
// First Date Tests
// =============================================================================

func TestParseFirstDateExact(t *testing.T) {
	got, err := ParseFirstDate("  2024-05-01   08:00 ", now)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01 08:00", got)

	got, err = ParseFirstDate("2020-01-01 23:59", now)
	require.NoError(t, err)
	assert.Equal(t, "2020-01-01 23:59", got, "past dates are kept")
}

func TestParseFirstDateRelative(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"+30m", "2024-05-01 08:35"},
		{"+2h", "2024-05-01 10:05"},
		{"+1d", "2024-05-02 08:05"},
		{"+2w", "2024-05-15 08:05"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFirstDate(tt.input, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFirstDateNatural(t *testing.T) {
	got, err := ParseFirstDate("in 2 hours", now)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01 10:05", got)

	got, err = ParseFirstDate("tomorrow", now)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-02", got[:10])
}

func TestParseFirstDateInvalid(t *testing.T) {
	for _, input := range []string{"", "   ", "+0h", "definitely not a date"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseFirstDate(input, now)
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrInvalidDateTime)

			var tpe *TimeParseError
			require.ErrorAs(t, err, &tpe)
			assert.Equal(t, "first date", tpe.Field)
		})
	}
}

// =============================================================================
// Interval Tests
// =============================================================================

func TestParseInterval(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"", 0},
		{"0", 0},
		{" 6 ", 6},
		{"daily", 0},
		{"Every 8 Hours", 2},
		{"weekly", 6},
		{"twice a day", 1},
		{"once", 9},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseInterval(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseIntervalInvalid(t *testing.T) {
	for _, input := range []string{"10", "-1", "fortnightly-ish"} {
		_, err := ParseInterval(input)
		assert.ErrorIs(t, err, errors.ErrInvalidInterval, input)
	}
}

func TestIntervalNames(t *testing.T) {
	names := IntervalNames()
	require.Len(t, names, 10)
	assert.Equal(t, "0: daily", names[0])
	assert.Equal(t, "9: once", names[9])
}

// =============================================================================
// Error Tests
// =============================================================================

func TestTimeParseError(t *testing.T) {
	err := NewFirstDateError("soonish", "could not parse first date")
	assert.Equal(t, "invalid first date 'soonish': could not parse first date", err.Error())

	msg := err.FormatWithExamples()
	assert.Contains(t, msg, "Valid examples:")
	assert.Contains(t, msg, "  - tomorrow 8am")

	ir := err.ToInvalidRequest()
	assert.True(t, errors.IsInvalidRequest(ir))
	assert.ErrorIs(t, ir, errors.ErrInvalidDateTime)
	assert.Equal(t, "first date", ir.Field)

	interval := NewIntervalError("sometimes")
	assert.Contains(t, interval.FormatWithExamples(), "9: once")
}

// =============================================================================
// Format Tests
// =============================================================================

func TestFormatDue(t *testing.T) {
	assert.Equal(t, "Today at 8:00 PM", FormatDue(now.Add(12*time.Hour-5*time.Minute), now))
	assert.Equal(t, "Tomorrow at 8:00 AM", FormatDue(time.Date(2024, 5, 2, 8, 0, 0, 0, time.Local), now))
	assert.Equal(t, "Yesterday at 8:00 AM", FormatDue(time.Date(2024, 4, 30, 8, 0, 0, 0, time.Local), now))
	assert.Equal(t, "Friday at 9:00 AM", FormatDue(time.Date(2024, 5, 3, 9, 0, 0, 0, time.Local), now))
	assert.Equal(t, "Mon, May 20 at 9:00 AM", FormatDue(time.Date(2024, 5, 20, 9, 0, 0, 0, time.Local), now))
}

func TestFormatTimeUntil(t *testing.T) {
	tests := []struct {
		diff time.Duration
		want string
	}{
		{-time.Minute, "overdue"},
		{30 * time.Second, "less than a minute"},
		{time.Minute, "in 1 minute"},
		{45 * time.Minute, "in 45 minutes"},
		{time.Hour, "in 1 hour"},
		{90 * time.Minute, "in 1 hour 30 minutes"},
		{5 * time.Hour, "in 5 hours"},
		{26 * time.Hour, "in 1 day"},
		{3 * 24 * time.Hour, "in 3 days"},
		{15 * 24 * time.Hour, "in 2 weeks"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTimeUntil(now.Add(tt.diff), now))
		})
	}
}
