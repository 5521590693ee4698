package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// AckStatus records how a reminder occurrence was resolved.
type AckStatus string

// Acknowledgement statuses.
const (
	AckAcknowledged AckStatus = "acknowledged"
	AckDismissed    AckStatus = "dismissed"
)

// Acknowledgement is one entry of a medication's acknowledgement log.
type Acknowledgement struct {
	ReminderID int64     `json:"reminder_id"`
	Status     AckStatus `json:"status"`
	Occurrence string    `json:"occurrence"`
	RecordedAt time.Time `json:"recorded_at"`
}

// NewAcknowledgement creates a log entry for a reminder's pending occurrence.
func NewAcknowledgement(r *Reminder, dismissed bool, at time.Time) Acknowledgement {
	status := AckAcknowledged
	if dismissed {
		status = AckDismissed
	}
	return Acknowledgement{
		ReminderID: r.PrimaryKey,
		Status:     status,
		Occurrence: r.DateTime(),
		RecordedAt: at,
	}
}

// AcknowledgementLog is the decoded form of Medication.AcknowledgementList.
type AcknowledgementLog []Acknowledgement

// ParseAcknowledgementLog decodes a serialized log. An empty string is an empty log.
func ParseAcknowledgementLog(s string) (AcknowledgementLog, error) {
	if s == "" {
		return AcknowledgementLog{}, nil
	}
	var log AcknowledgementLog
	if err := json.Unmarshal([]byte(s), &log); err != nil {
		return nil, fmt.Errorf("invalid acknowledgement log: %w", err)
	}
	return log, nil
}

// Serialize encodes the log for storage.
func (l AcknowledgementLog) Serialize() (string, error) {
	if len(l) == 0 {
		return "", nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Count returns the number of entries with the given status.
func (l AcknowledgementLog) Count(status AckStatus) int {
	n := 0
	for _, a := range l {
		if a.Status == status {
			n++
		}
	}
	return n
}

// AppendAcknowledgement appends an entry to a serialized log.
func AppendAcknowledgement(serialized string, entry Acknowledgement) (string, error) {
	log, err := ParseAcknowledgementLog(serialized)
	if err != nil {
		return "", err
	}
	return append(log, entry).Serialize()
}
