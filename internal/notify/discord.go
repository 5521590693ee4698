package notify

import (
	"encoding/json"

	"github.com/manav03panchal/medtrack/internal/model"
	"github.com/manav03panchal/medtrack/internal/validate"
)

// Embed limits enforced by Discord.
const (
	discordTitleLimit       = 256
	discordDescriptionLimit = 4096
)

// DiscordFormatter formats notifications for Discord webhooks.
type DiscordFormatter struct{}

type discordPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds,omitempty"`
}

type discordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Footer      *discordEmbedFooter `json:"footer,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordEmbedFooter struct {
	Text string `json:"text"`
}

// Format converts a notification to Discord webhook format.
func (f *DiscordFormatter) Format(n *model.Notification) ([]byte, error) {
	embed := discordEmbed{
		Title:       validate.TruncateString(n.Title, discordTitleLimit),
		Description: validate.TruncateString(n.Message, discordDescriptionLimit),
		Color:       colorFor(n.Type),
		Timestamp:   n.DueAt.Format(timestampLayout),
		Footer:      &discordEmbedFooter{Text: footer},
	}

	for _, key := range fieldNames(n) {
		embed.Fields = append(embed.Fields, discordEmbedField{
			Name:   key,
			Value:  n.Fields[key],
			Inline: true,
		})
	}

	return json.Marshal(discordPayload{Embeds: []discordEmbed{embed}})
}

// ContentType returns the content type for Discord webhooks.
func (f *DiscordFormatter) ContentType() string {
	return "application/json"
}
