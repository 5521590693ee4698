// Package parser turns user-typed schedule expressions into the exact
// formats stored on medications and reminders.
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/markusmobius/go-dateparser"

	"github.com/manav03panchal/medtrack/internal/model"
)

// relativeRegex matches relative expressions like "+30m", "+2h", "+1d".
var relativeRegex = regexp.MustCompile(`^\+(\d+)([mhdw])$`)

// ParseFirstDate parses a first-date expression relative to now and returns
// it as "YYYY-MM-DD HH:MM". Supported forms:
//   - "2024-05-01 08:00" (exact)
//   - "+30m", "+2h", "+1d", "+1w" (relative)
//   - "tomorrow 8am", "monday 9:30" (natural language)
//
// Past dates are accepted.
func ParseFirstDate(input string, now time.Time) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", NewFirstDateError(input, "first date is required")
	}

	if date, clock, err := model.SplitDateTime(input); err == nil {
		return date + " " + clock, nil
	}

	if match := relativeRegex.FindStringSubmatch(input); match != nil {
		t, err := parseRelative(match[1], match[2], now)
		if err != nil {
			return "", NewFirstDateError(input, err.Error())
		}
		return format(t), nil
	}

	cfg := &dateparser.Configuration{
		CurrentTime: now,
	}
	result, err := dateparser.Parse(cfg, input)
	if err != nil || result.Time.IsZero() {
		return "", NewFirstDateError(input, "could not parse first date")
	}
	return format(result.Time.In(now.Location())), nil
}

// parseRelative adds a relative offset to now.
func parseRelative(numStr, unit string, now time.Time) (time.Time, error) {
	num, err := strconv.Atoi(numStr)
	if err != nil || num <= 0 {
		return time.Time{}, fmt.Errorf("offset must be positive")
	}

	switch unit {
	case "m":
		return now.Add(time.Duration(num) * time.Minute), nil
	case "h":
		return now.Add(time.Duration(num) * time.Hour), nil
	case "d":
		return now.AddDate(0, 0, num), nil
	case "w":
		return now.AddDate(0, 0, 7*num), nil
	default:
		return time.Time{}, fmt.Errorf("invalid time unit: %s", unit)
	}
}

func format(t time.Time) string {
	date, clock := model.FormatOccurrence(t)
	return date + " " + clock
}
