package parser

import (
	"strconv"
	"strings"

	"github.com/manav03panchal/medtrack/internal/model"
)

// intervalAliases maps extra spellings to interval indexes.
var intervalAliases = map[string]int{
	"day":         0,
	"every day":   0,
	"twice a day": 1,
	"week":        6,
	"biweekly":    7,
	"month":       8,
	"one-off":     9,
}

// ParseInterval accepts an interval index ("6") or name ("weekly").
func ParseInterval(input string) (int, error) {
	s := strings.ToLower(strings.TrimSpace(input))
	if s == "" {
		return model.DefaultIntervalIndex, nil
	}

	if idx, err := strconv.Atoi(s); err == nil {
		if !model.IsValidIntervalIndex(idx) {
			return 0, NewIntervalError(input)
		}
		return idx, nil
	}

	for _, interval := range model.Intervals() {
		if interval.Name == s {
			return interval.Index, nil
		}
	}
	if idx, ok := intervalAliases[s]; ok {
		return idx, nil
	}
	return 0, NewIntervalError(input)
}

// IntervalNames returns "index: name" lines for help output.
func IntervalNames() []string {
	all := model.Intervals()
	out := make([]string, len(all))
	for i, interval := range all {
		out[i] = strconv.Itoa(interval.Index) + ": " + interval.Name
	}
	return out
}
