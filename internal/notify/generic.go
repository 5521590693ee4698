package notify

import (
	"bytes"
	"encoding/json"
	"text/template"

	"github.com/manav03panchal/medtrack/internal/model"
)

// GenericFormatter posts a plain JSON document, or renders Template when set.
type GenericFormatter struct {
	Template string
}

type genericPayload struct {
	Type       string            `json:"type"`
	ReminderID int64             `json:"reminder_id"`
	Title      string            `json:"title"`
	Message    string            `json:"message"`
	Fields     map[string]string `json:"fields,omitempty"`
	DueAt      string            `json:"due_at"`
	Timestamp  string            `json:"timestamp"`
	Color      int               `json:"color,omitempty"`
}

// NewGenericFormatter creates a new generic formatter with an optional template.
func NewGenericFormatter(template string) *GenericFormatter {
	return &GenericFormatter{Template: template}
}

// Format converts a notification to the generic payload.
func (f *GenericFormatter) Format(n *model.Notification) ([]byte, error) {
	if f.Template != "" {
		return f.formatWithTemplate(n)
	}

	return json.Marshal(genericPayload{
		Type:       string(n.Type),
		ReminderID: n.ReminderID,
		Title:      n.Title,
		Message:    n.Message,
		Fields:     n.Fields,
		DueAt:      n.DueAt.Format(timestampLayout),
		Timestamp:  n.Timestamp.Format(timestampLayout),
		Color:      colorFor(n.Type),
	})
}

func (f *GenericFormatter) formatWithTemplate(n *model.Notification) ([]byte, error) {
	tmpl, err := template.New("webhook").Parse(f.Template)
	if err != nil {
		return nil, err
	}

	data := map[string]interface{}{
		"Type":       string(n.Type),
		"ReminderID": n.ReminderID,
		"Title":      n.Title,
		"Message":    n.Message,
		"Fields":     n.Fields,
		"DueAt":      n.DueAt,
		"Timestamp":  n.Timestamp,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ContentType returns the content type for generic webhooks.
func (f *GenericFormatter) ContentType() string {
	return "application/json"
}
