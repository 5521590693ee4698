package parser

import (
	"fmt"
	"time"
)

func isSameDay(t1, t2 time.Time) bool {
	y1, m1, d1 := t1.Date()
	y2, m2, d2 := t2.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// FormatDue formats an occurrence for display relative to now.
func FormatDue(t, now time.Time) string {
	diff := t.Sub(now)

	var datePart string
	switch {
	case isSameDay(t, now):
		datePart = "Today"
	case isSameDay(t, now.AddDate(0, 0, 1)):
		datePart = "Tomorrow"
	case isSameDay(t, now.AddDate(0, 0, -1)):
		datePart = "Yesterday"
	case diff > 0 && diff < 7*24*time.Hour:
		datePart = t.Format("Monday")
	default:
		datePart = t.Format("Mon, Jan 2")
	}

	return fmt.Sprintf("%s at %s", datePart, t.Format("3:04 PM"))
}

// FormatTimeUntil formats the time left until an occurrence.
func FormatTimeUntil(t, now time.Time) string {
	diff := t.Sub(now)
	if diff < 0 {
		return "overdue"
	}

	if diff < time.Minute {
		return "less than a minute"
	}
	if diff < time.Hour {
		mins := int(diff.Minutes())
		if mins == 1 {
			return "in 1 minute"
		}
		return fmt.Sprintf("in %d minutes", mins)
	}
	if diff < 24*time.Hour {
		hours := int(diff.Hours())
		mins := int(diff.Minutes()) % 60
		if hours == 1 {
			if mins > 0 {
				return fmt.Sprintf("in 1 hour %d minutes", mins)
			}
			return "in 1 hour"
		}
		if mins > 0 {
			return fmt.Sprintf("in %d hours %d minutes", hours, mins)
		}
		return fmt.Sprintf("in %d hours", hours)
	}
	if diff < 7*24*time.Hour {
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "in 1 day"
		}
		return fmt.Sprintf("in %d days", days)
	}

	weeks := int(diff.Hours() / (24 * 7))
	if weeks == 1 {
		return "in 1 week"
	}
	return fmt.Sprintf("in %d weeks", weeks)
}
