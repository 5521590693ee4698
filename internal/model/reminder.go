package model

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Date and time layouts used by reminder fields.
const (
	DateLayout     = "2006-01-02"
	TimeLayout     = "15:04"
	DateTimeLayout = DateLayout + " " + TimeLayout
)

// Classification determines which bulk delete affects a reminder.
type Classification string

// Reminder classifications.
const (
	ClassMedication  Classification = "M"
	ClassAppointment Classification = "A"
)

// IsValid checks if the classification is known.
func (c Classification) IsValid() bool {
	return c == ClassMedication || c == ClassAppointment
}

// Reminder is the next pending occurrence of a recurring schedule.
type Reminder struct {
	PrimaryKey     int64          `json:"primary_key"`
	Classification Classification `json:"classification"`
	Date           string         `json:"date"`
	Time           string         `json:"time"`
	IntervalIndex  int            `json:"interval_index"`
	OwnerKey       int64          `json:"owner_key"`
}

// SetKey sets the primary key from a database key.
func (r *Reminder) SetKey(key string) {
	if pk, err := ParseKey(PrefixReminder, key); err == nil {
		r.PrimaryKey = pk
	}
}

// GetKey returns the database key for this reminder.
func (r *Reminder) GetKey() string {
	return GenerateKey(PrefixReminder, r.PrimaryKey)
}

// DateTime returns the occurrence as "YYYY-MM-DD HH:MM".
func (r *Reminder) DateTime() string {
	return r.Date + " " + r.Time
}

// Occurrence parses the pending occurrence in the local time zone.
func (r *Reminder) Occurrence() (time.Time, error) {
	return time.ParseInLocation(DateTimeLayout, r.DateTime(), time.Local)
}

// Interval returns the recurrence rule selected by IntervalIndex.
func (r *Reminder) Interval() (Interval, bool) {
	return IntervalAt(r.IntervalIndex)
}

// Next computes the occurrence that follows the pending one. The result is
// always after now for recurring intervals; a reminder whose interval does
// not recur keeps its current occurrence.
func (r *Reminder) Next(now time.Time) (time.Time, error) {
	current, err := r.Occurrence()
	if err != nil {
		return time.Time{}, fmt.Errorf("reminder %d has an invalid occurrence: %w", r.PrimaryKey, err)
	}

	interval, ok := r.Interval()
	if !ok {
		return time.Time{}, fmt.Errorf("reminder %d has unknown interval index %d", r.PrimaryKey, r.IntervalIndex)
	}
	if !interval.Recurs() {
		return current, nil
	}

	next := interval.Advance(current)
	for !next.After(now) {
		next = interval.Advance(next)
	}
	return next, nil
}

// FormatOccurrence splits a time into reminder date and time fields.
func FormatOccurrence(t time.Time) (date, clock string) {
	return t.Format(DateLayout), t.Format(TimeLayout)
}

// SplitDateTime splits "YYYY-MM-DD HH:MM" on its first whitespace boundary
// and validates both halves.
func SplitDateTime(s string) (date, clock string, err error) {
	s = strings.TrimSpace(s)
	idx := strings.IndexFunc(s, unicode.IsSpace)
	if idx < 0 {
		return "", "", fmt.Errorf("%q is missing a time part", s)
	}

	date = s[:idx]
	clock = strings.TrimSpace(s[idx:])

	if err := ValidateDate(date); err != nil {
		return "", "", err
	}
	if err := ValidateTime(clock); err != nil {
		return "", "", err
	}
	return date, clock, nil
}

// ValidateDate checks a "YYYY-MM-DD" string.
func ValidateDate(date string) error {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return fmt.Errorf("%q is not a YYYY-MM-DD date", date)
	}
	return nil
}

// ValidateTime checks a "HH:MM" string.
func ValidateTime(clock string) error {
	if _, err := time.Parse(TimeLayout, clock); err != nil {
		return fmt.Errorf("%q is not an HH:MM time", clock)
	}
	return nil
}

// NewMedicationReminder creates the reminder derived from a medication's first date.
func NewMedicationReminder(ownerKey int64, date, clock string) *Reminder {
	return &Reminder{
		Classification: ClassMedication,
		Date:           date,
		Time:           clock,
		IntervalIndex:  DefaultIntervalIndex,
		OwnerKey:       ownerKey,
	}
}
