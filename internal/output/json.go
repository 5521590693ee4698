package output

import (
	"time"

	"github.com/manav03panchal/medtrack/internal/model"
	"github.com/manav03panchal/medtrack/internal/storage"
)

// JSONFormatter provides JSON-specific formatting.
type JSONFormatter struct {
	*Formatter
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(f *Formatter) *JSONFormatter {
	return &JSONFormatter{Formatter: f}
}

// MedicationOutput represents a medication in JSON output.
type MedicationOutput struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Dosage      string  `json:"dosage"`
	FirstDate   string  `json:"first_date"`
	ReminderIDs []int64 `json:"reminder_ids"`
	CreatedAt   string  `json:"created_at"`
}

// NewMedicationOutput creates a MedicationOutput from a Medication.
func NewMedicationOutput(m *model.Medication) *MedicationOutput {
	ids := m.ReminderIDs
	if ids == nil {
		ids = []int64{}
	}
	return &MedicationOutput{
		ID:          m.PrimaryKey,
		Name:        m.Name,
		Dosage:      m.Dosage,
		FirstDate:   m.FirstDate,
		ReminderIDs: ids,
		CreatedAt:   m.CreatedAt.Format(time.RFC3339),
	}
}

// ReminderOutput represents a reminder in JSON output.
type ReminderOutput struct {
	ID             int64  `json:"id"`
	Classification string `json:"classification"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	IntervalIndex  int    `json:"interval_index"`
	Interval       string `json:"interval,omitempty"`
	MedicationID   int64  `json:"medication_id,omitempty"`
}

// NewReminderOutput creates a ReminderOutput from a Reminder.
func NewReminderOutput(r *model.Reminder) *ReminderOutput {
	out := &ReminderOutput{
		ID:             r.PrimaryKey,
		Classification: string(r.Classification),
		Date:           r.Date,
		Time:           r.Time,
		IntervalIndex:  r.IntervalIndex,
		MedicationID:   r.OwnerKey,
	}
	if interval, ok := r.Interval(); ok {
		out.Interval = interval.Name
	}
	return out
}

func newReminderOutputs(rems []*model.Reminder) []*ReminderOutput {
	out := make([]*ReminderOutput, len(rems))
	for i, r := range rems {
		out[i] = NewReminderOutput(r)
	}
	return out
}

// MedicationAddedResponse represents the med add output in JSON.
type MedicationAddedResponse struct {
	Status     string            `json:"status"`
	Medication *MedicationOutput `json:"medication"`
	Reminder   *ReminderOutput   `json:"reminder"`
}

// MedicationsResponse represents the medication list output in JSON.
type MedicationsResponse struct {
	Medications []*MedicationOutput `json:"medications"`
	TotalCount  int                 `json:"total_count"`
}

// MedicationDetailResponse represents the med show output in JSON.
type MedicationDetailResponse struct {
	Medication       *MedicationOutput       `json:"medication"`
	Reminders        []*ReminderOutput       `json:"reminders"`
	Acknowledgements []model.Acknowledgement `json:"acknowledgements"`
}

// RemindersResponse represents the reminder list output in JSON.
type RemindersResponse struct {
	Reminders []*ReminderOutput `json:"reminders"`
}

// AcknowledgeResponse represents the ack/dismiss output in JSON.
type AcknowledgeResponse struct {
	Status   string          `json:"status"`
	Reminder *ReminderOutput `json:"reminder"`
}

// DeleteResponse represents a delete output in JSON.
type DeleteResponse struct {
	Status  string `json:"status"`
	Target  string `json:"target"`
	Deleted bool   `json:"deleted"`
}

// ClearResponse represents a clear output in JSON.
type ClearResponse struct {
	Status  string `json:"status"`
	Target  string `json:"target"`
	Removed int    `json:"removed"`
}

// ErrorResponse represents an error in JSON.
type ErrorResponse struct {
	Status  string `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// PrintMedicationAdded outputs a newly added medication.
func (j *JSONFormatter) PrintMedicationAdded(med *model.Medication, rem *model.Reminder) error {
	return j.JSON(MedicationAddedResponse{
		Status:     "added",
		Medication: NewMedicationOutput(med),
		Reminder:   NewReminderOutput(rem),
	})
}

// PrintMedications outputs the medication list.
func (j *JSONFormatter) PrintMedications(meds []*model.Medication) error {
	out := make([]*MedicationOutput, len(meds))
	for i, m := range meds {
		out[i] = NewMedicationOutput(m)
	}
	return j.JSON(MedicationsResponse{Medications: out, TotalCount: len(meds)})
}

// PrintMedication outputs one medication with its reminders and log.
func (j *JSONFormatter) PrintMedication(med *model.Medication, reminders []*model.Reminder, log model.AcknowledgementLog) error {
	if log == nil {
		log = model.AcknowledgementLog{}
	}
	return j.JSON(MedicationDetailResponse{
		Medication:       NewMedicationOutput(med),
		Reminders:        newReminderOutputs(reminders),
		Acknowledgements: log,
	})
}

// PrintReminders outputs a reminder list.
func (j *JSONFormatter) PrintReminders(reminders []*model.Reminder) error {
	return j.JSON(RemindersResponse{Reminders: newReminderOutputs(reminders)})
}

// PrintAcknowledged outputs a reminder advanced by an acknowledgement.
func (j *JSONFormatter) PrintAcknowledged(rem *model.Reminder, dismissed bool) error {
	status := string(model.AckAcknowledged)
	if dismissed {
		status = string(model.AckDismissed)
	}
	return j.JSON(AcknowledgeResponse{Status: status, Reminder: NewReminderOutput(rem)})
}

// PrintDeleted outputs the outcome of a delete request.
func (j *JSONFormatter) PrintDeleted(target string, deleted bool) error {
	status := "deleted"
	if !deleted {
		status = "not_found"
	}
	return j.JSON(DeleteResponse{Status: status, Target: target, Deleted: deleted})
}

// PrintCleared outputs the number of rows removed by a clear request.
func (j *JSONFormatter) PrintCleared(target string, n int) error {
	return j.JSON(ClearResponse{Status: "cleared", Target: target, Removed: n})
}

// PrintIntegrity outputs a database integrity report.
func (j *JSONFormatter) PrintIntegrity(status *storage.RecoveryStatus) error {
	return j.JSON(status)
}

// PrintError outputs an error in JSON format.
func (j *JSONFormatter) PrintError(status, errMsg, message string) error {
	return j.JSON(ErrorResponse{
		Status:  status,
		Error:   errMsg,
		Message: message,
	})
}
