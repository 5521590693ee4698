package logging

import (
	"strings"
)

const (
	// MaskChar is the character used for masking.
	MaskChar = "*"
	// DefaultMaskLength is how many mask characters to show.
	DefaultMaskLength = 3
	// NameVisibleChars is how much of a medication name stays readable.
	NameVisibleChars = 2
)

// SensitiveFields lists argument keys whose values are health data.
var SensitiveFields = map[string]bool{
	KeyName:            true,
	KeyDosage:          true,
	"name":             true,
	"acknowledgements": true,
}

// MaskValue masks a sensitive value completely.
func MaskValue(value string) string {
	if value == "" {
		return ""
	}
	return strings.Repeat(MaskChar, min(len(value), 8))
}

// MaskPartial masks a value but shows the first few characters.
func MaskPartial(value string, showChars int) string {
	if len(value) <= showChars {
		return strings.Repeat(MaskChar, len(value))
	}
	return value[:showChars] + strings.Repeat(MaskChar, DefaultMaskLength)
}

// IsSensitiveField checks if a field name carries health data.
func IsSensitiveField(fieldName string) bool {
	return SensitiveFields[strings.ToLower(fieldName)]
}

// MaskArgs masks sensitive values in a slice of logging arguments.
// Arguments are expected in key-value pairs: key1, value1, key2, value2, ...
// Names keep a short readable prefix so log lines stay correlatable.
func MaskArgs(args []any) []any {
	if len(args) < 2 {
		return args
	}

	result := make([]any, len(args))
	copy(result, args)

	for i := 0; i < len(result)-1; i += 2 {
		key, ok := result[i].(string)
		if !ok || !IsSensitiveField(key) {
			continue
		}

		strVal, ok := result[i+1].(string)
		switch {
		case !ok:
			result[i+1] = strings.Repeat(MaskChar, 8)
		case key == KeyName || key == "name":
			result[i+1] = MaskPartial(strVal, NameVisibleChars)
		default:
			result[i+1] = MaskValue(strVal)
		}
	}

	return result
}
