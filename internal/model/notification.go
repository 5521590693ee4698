package model

import (
	"fmt"
	"time"
)

// NotificationType defines the type of notification.
type NotificationType string

// Notification types.
const (
	NotifyMedication  NotificationType = "medication"
	NotifyAppointment NotificationType = "appointment"
)

// Notification is handed to a deliverer when a reminder falls due.
type Notification struct {
	Type       NotificationType  `json:"type"`
	ReminderID int64             `json:"reminder_id"`
	Title      string            `json:"title"`
	Message    string            `json:"message"`
	Fields     map[string]string `json:"fields,omitempty"`
	DueAt      time.Time         `json:"due_at"`
	Timestamp  time.Time         `json:"timestamp"`
}

// NewNotification creates a new notification.
func NewNotification(t NotificationType, title, message string) *Notification {
	return &Notification{
		Type:      t,
		Title:     title,
		Message:   message,
		Fields:    make(map[string]string),
		Timestamp: time.Now(),
	}
}

// WithField adds a field to the notification.
func (n *Notification) WithField(key, value string) *Notification {
	if n.Fields == nil {
		n.Fields = make(map[string]string)
	}
	n.Fields[key] = value
	return n
}

// NotificationForReminder builds the notification for a due reminder.
// The medication may be nil when the owner no longer exists.
func NotificationForReminder(r *Reminder, med *Medication, dueAt time.Time) *Notification {
	t := NotifyMedication
	if r.Classification == ClassAppointment {
		t = NotifyAppointment
	}

	title := "Reminder due"
	message := fmt.Sprintf("Reminder %d is due", r.PrimaryKey)
	if med != nil {
		title = fmt.Sprintf("Time to take %s", med.Name)
		message = fmt.Sprintf("%s: %s", med.Name, med.Dosage)
	}

	n := NewNotification(t, title, message).
		WithField("Due", r.DateTime())
	if interval, ok := r.Interval(); ok {
		n.WithField("Repeats", interval.Name)
	}
	n.ReminderID = r.PrimaryKey
	n.DueAt = dueAt
	return n
}
