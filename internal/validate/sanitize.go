package validate

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SanitizeText cleans single-line user input such as a medication name:
// control characters are dropped, whitespace runs collapse to one space
// and the ends are trimmed.
func SanitizeText(s string) string {
	return strings.Join(strings.Fields(StripControlChars(s)), " ")
}

// StripControlChars removes all control characters except newline and tab.
func StripControlChars(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if !unicode.IsControl(r) || r == '\n' || r == '\t' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// TruncateString shortens s to at most maxLen runes, ending in "..." when cut.
func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
