package repository

import (
	"fmt"

	"github.com/manav03panchal/medtrack/internal/model"
)

// InsertStep names a step of a composite medication insert.
type InsertStep int

// Steps of the composite medication insert that can fail after the
// medication row has committed, in execution order.
const (
	StepInsertReminder InsertStep = iota + 1
	StepLinkReminder
	StepSetInterval
)

func (s InsertStep) String() string {
	switch s {
	case StepInsertReminder:
		return "insert reminder"
	case StepLinkReminder:
		return "link reminder"
	case StepSetInterval:
		return "set interval"
	default:
		return fmt.Sprintf("step %d", int(s))
	}
}

// PartialInsertError reports a composite insert that stopped after some
// steps had committed. Committed rows are left in place.
type PartialInsertError struct {
	Step          InsertStep
	MedicationKey int64
	ReminderKey   int64
	Cause         error
}

func (e *PartialInsertError) Error() string {
	if e.ReminderKey != 0 {
		return fmt.Sprintf("medication %d and reminder %d saved but %s failed: %v",
			e.MedicationKey, e.ReminderKey, e.Step, e.Cause)
	}
	return fmt.Sprintf("medication %d saved but %s failed: %v", e.MedicationKey, e.Step, e.Cause)
}

func (e *PartialInsertError) Unwrap() error {
	return e.Cause
}

// MedicationInsert is the outcome of InsertMedicationAndReminder.
type MedicationInsert struct {
	MedicationKey int64
	ReminderKey   int64
	Reminder      *model.Reminder
}
