package runtime

import (
	"fmt"
	"strings"

	"github.com/manav03panchal/medtrack/internal/errors"
	"github.com/manav03panchal/medtrack/internal/parser"
	"github.com/manav03panchal/medtrack/internal/repository"
)

// FormatError formats an error with optional suggestion.
func FormatError(err error) string {
	var parseErr *parser.TimeParseError
	if errors.As(err, &parseErr) {
		return parseErr.FormatWithExamples()
	}

	msg := err.Error()
	if suggestion := Suggestion(err); suggestion != "" {
		msg += "\n" + suggestion
	}
	return msg
}

// Suggestion returns the hint printed under an error, if any.
func Suggestion(err error) string {
	var partial *repository.PartialInsertError
	if errors.As(err, &partial) {
		return fmt.Sprintf("Use 'medtrack med show %d' to inspect what was saved, or 'medtrack med delete' to remove it.",
			partial.MedicationKey)
	}
	return errors.GetSuggestion(err)
}

// ExitCode maps an error to a process exit code: 2 for input the user must
// fix, 1 for everything else.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if isUserError(err) {
		return 2
	}
	return 1
}

func isUserError(err error) bool {
	var parseErr *parser.TimeParseError
	return errors.IsInvalidRequest(err) || errors.As(err, &parseErr)
}

// ErrorStatus names an error's category for JSON output.
func ErrorStatus(err error) string {
	switch {
	case isUserError(err):
		return "invalid_request"
	case errors.IsPersistence(err):
		return "persistence_error"
	default:
		return "error"
	}
}

// FirstLine returns the first line of a formatted error.
func FirstLine(msg string) string {
	line, _, _ := strings.Cut(msg, "\n")
	return line
}
