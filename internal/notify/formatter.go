// Package notify delivers due reminders to chat webhooks.
package notify

import (
	"maps"
	"slices"

	"github.com/manav03panchal/medtrack/internal/config"
	"github.com/manav03panchal/medtrack/internal/model"
)

// Formatter formats notifications for a specific webhook type.
type Formatter interface {
	// Format converts a notification into the webhook-specific payload.
	Format(n *model.Notification) ([]byte, error)

	// ContentType returns the HTTP Content-Type for the payload.
	ContentType() string
}

// GetFormatter returns the appropriate formatter for a webhook type.
func GetFormatter(webhookType string) Formatter {
	switch webhookType {
	case config.WebhookDiscord:
		return &DiscordFormatter{}
	case config.WebhookSlack:
		return &SlackFormatter{}
	case config.WebhookTeams:
		return &TeamsFormatter{}
	default:
		return &GenericFormatter{}
	}
}

// formatterFor picks the formatter for a configured webhook.
func formatterFor(w config.WebhookConfig) Formatter {
	if w.Template != "" && (w.Type == "" || w.Type == config.WebhookGeneric) {
		return NewGenericFormatter(w.Template)
	}
	return GetFormatter(w.Type)
}

// Accent colors per notification type.
const (
	colorMedication  = 0x7C3AED
	colorAppointment = 0x3B82F6
	colorDefault     = 0x6B7280
)

func colorFor(t model.NotificationType) int {
	switch t {
	case model.NotifyMedication:
		return colorMedication
	case model.NotifyAppointment:
		return colorAppointment
	default:
		return colorDefault
	}
}

// fieldNames returns the field keys in a stable order.
func fieldNames(n *model.Notification) []string {
	return slices.Sorted(maps.Keys(n.Fields))
}

const timestampLayout = "2006-01-02T15:04:05Z07:00"

const footer = "medtrack"
