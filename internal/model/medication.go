package model

import (
	"slices"
	"time"
)

// Medication is a tracked drug entry.
type Medication struct {
	PrimaryKey          int64     `json:"primary_key"`
	Name                string    `json:"name" validate:"required,max=128"`
	Dosage              string    `json:"dosage" validate:"required,max=64"`
	FirstDate           string    `json:"first_date" validate:"required"`
	AcknowledgementList string    `json:"acknowledgement_list,omitempty"`
	ReminderIDs         []int64   `json:"reminder_ids,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

// SetKey sets the primary key from a database key.
func (m *Medication) SetKey(key string) {
	if pk, err := ParseKey(PrefixMedication, key); err == nil {
		m.PrimaryKey = pk
	}
}

// GetKey returns the database key for this medication.
func (m *Medication) GetKey() string {
	return GenerateKey(PrefixMedication, m.PrimaryKey)
}

// IsPersisted returns true once the repository has assigned a primary key.
func (m *Medication) IsPersisted() bool {
	return m.PrimaryKey != UnsetKey
}

// HasReminder reports whether the reminder key is linked to this medication.
func (m *Medication) HasReminder(reminderKey int64) bool {
	return slices.Contains(m.ReminderIDs, reminderKey)
}

// AddReminderID links a reminder key. Returns false if it was already linked.
func (m *Medication) AddReminderID(reminderKey int64) bool {
	if m.HasReminder(reminderKey) {
		return false
	}
	m.ReminderIDs = append(m.ReminderIDs, reminderKey)
	return true
}

// NameIndexKey returns the key of the name index entry for a medication name.
func NameIndexKey(name string) string {
	return PrefixMedicationName + ":" + name
}

// NewMedication creates an unpersisted medication.
func NewMedication(name, dosage, firstDate string) *Medication {
	return &Medication{
		Name:      name,
		Dosage:    dosage,
		FirstDate: firstDate,
		CreatedAt: time.Now(),
	}
}
