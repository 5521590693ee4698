package errors

import "errors"

// Suggestions maps common errors to helpful suggestions.
var Suggestions = map[error]string{
	ErrUnsupportedKind:    "Only medications can be managed for now.",
	ErrUnknownKind:        "Use one of: medication, doctor, appointment.",
	ErrMissingField:       "Check the required flags with --help.",
	ErrDuplicateName:      "Use 'medtrack med list' to see existing medications, or pick another name.",
	ErrInvalidInterval:    "Use 'medtrack med add --help' to list the available intervals.",
	ErrInvalidDateTime:    "Use the format 'YYYY-MM-DD HH:MM', e.g. '2024-05-01 08:00'.",
	ErrReminderNotFound:   "Use 'medtrack remind next' to see pending reminders.",
	ErrMedicationNotFound: "Use 'medtrack med list' to see existing medications.",
	ErrInvalidField:       "Check the value against 'medtrack med add --help'.",

	ErrClosed:            "The database was closed while the operation was queued. Try again.",
	ErrDiskFull:          "Free up disk space and try again.",
	ErrDatabaseCorrupted: "Run 'medtrack check --backup' to inspect the database.",
	ErrLockHeld:          "Another medtrack instance is running. Close it or check for stale processes.",
}

// GetSuggestion returns a suggestion for an error, if available.
// It walks the error chain to find matching suggestions.
func GetSuggestion(err error) string {
	if err == nil {
		return ""
	}

	for knownErr, suggestion := range Suggestions {
		if errors.Is(err, knownErr) {
			return suggestion
		}
	}

	if IsInvalidRequest(err) {
		return "Check your input and try again. Use --help for usage information."
	}
	if IsPersistence(err) {
		return "The change was not saved. Re-run the command once the database is available."
	}
	return ""
}
