package parser

import (
	"fmt"
	"strings"

	"github.com/manav03panchal/medtrack/internal/errors"
)

// TimeParseError represents a schedule parsing error with helpful examples.
type TimeParseError struct {
	Input      string
	Field      string
	Message    string
	Examples   []string
	Suggestion string
	Cause      error
}

func (e *TimeParseError) Error() string {
	return fmt.Sprintf("invalid %s '%s': %s", e.Field, e.Input, e.Message)
}

// Unwrap returns the InvalidRequest cause.
func (e *TimeParseError) Unwrap() error {
	return e.Cause
}

// FormatWithExamples returns the error message with example suggestions.
func (e *TimeParseError) FormatWithExamples() string {
	var sb strings.Builder
	sb.WriteString(e.Error())

	if len(e.Examples) > 0 {
		sb.WriteString("\n\nValid examples:\n")
		for _, ex := range e.Examples {
			sb.WriteString("  - ")
			sb.WriteString(ex)
			sb.WriteString("\n")
		}
	}

	if e.Suggestion != "" {
		sb.WriteString("\n")
		sb.WriteString(e.Suggestion)
	}

	return sb.String()
}

// FirstDateExamples provides example first-date formats.
var FirstDateExamples = []string{
	"2024-05-01 08:00",
	"tomorrow 8am",
	"monday 9:30",
	"+2h",
}

// IntervalExamples provides example interval formats.
var IntervalExamples = []string{
	"0",
	"daily",
	"every 8 hours",
	"weekly",
}

// NewFirstDateError creates a first-date parse error with standard examples.
func NewFirstDateError(input, message string) *TimeParseError {
	return &TimeParseError{
		Input:      input,
		Field:      "first date",
		Message:    message,
		Examples:   FirstDateExamples,
		Suggestion: "First dates can be exact (YYYY-MM-DD HH:MM), relative (+2h) or natural (tomorrow 8am).",
		Cause:      errors.ErrInvalidDateTime,
	}
}

// NewIntervalError creates an interval parse error listing the known intervals.
func NewIntervalError(input string) *TimeParseError {
	return &TimeParseError{
		Input:      input,
		Field:      "interval",
		Message:    "unknown interval",
		Examples:   IntervalExamples,
		Suggestion: "Known intervals:\n  " + strings.Join(IntervalNames(), "\n  "),
		Cause:      errors.ErrInvalidInterval,
	}
}

// ToInvalidRequest converts a TimeParseError to an InvalidRequestError for
// consistent handling.
func (e *TimeParseError) ToInvalidRequest() *errors.InvalidRequestError {
	return errors.NewInvalidField(e.Field, e.Input, e.Message, e.Cause)
}
