package notify

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/manav03panchal/medtrack/internal/model"
	"github.com/manav03panchal/medtrack/internal/validate"
)

// slackHeaderLimit is the longest text Slack accepts in a header block.
const slackHeaderLimit = 150

// SlackFormatter formats notifications for Slack webhooks.
type SlackFormatter struct{}

type slackPayload struct {
	Text        string        `json:"text,omitempty"`
	Blocks      []slackBlock  `json:"blocks,omitempty"`
	Attachments []slackAttach `json:"attachments,omitempty"`
}

type slackBlock struct {
	Type     string           `json:"type"`
	Text     *slackBlockText  `json:"text,omitempty"`
	Fields   []slackBlockText `json:"fields,omitempty"`
	Elements []slackBlockText `json:"elements,omitempty"`
}

type slackBlockText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// slackAttach carries the accent color.
type slackAttach struct {
	Color    string `json:"color,omitempty"`
	Fallback string `json:"fallback,omitempty"`
}

// Format converts a notification to Slack webhook format.
func (f *SlackFormatter) Format(n *model.Notification) ([]byte, error) {
	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackBlockText{Type: "plain_text", Text: validate.TruncateString(n.Title, slackHeaderLimit)},
		},
		{
			Type: "section",
			Text: &slackBlockText{Type: "mrkdwn", Text: slackEscape(n.Message)},
		},
	}

	if len(n.Fields) > 0 {
		var fields []slackBlockText
		for _, key := range fieldNames(n) {
			fields = append(fields, slackBlockText{
				Type: "mrkdwn",
				Text: fmt.Sprintf("*%s*\n%s", key, slackEscape(n.Fields[key])),
			})
		}
		blocks = append(blocks, slackBlock{Type: "section", Fields: fields})
	}

	blocks = append(blocks, slackBlock{
		Type: "context",
		Elements: []slackBlockText{{
			Type: "mrkdwn",
			Text: fmt.Sprintf("%s | due %s", footer, n.DueAt.Format("Jan 2, 3:04 PM")),
		}},
	})

	payload := slackPayload{
		Text:   fmt.Sprintf("*%s*", slackEscape(n.Title)),
		Blocks: blocks,
		Attachments: []slackAttach{{
			Color:    colorToHex(colorFor(n.Type)),
			Fallback: n.Title,
		}},
	}

	return json.Marshal(payload)
}

// ContentType returns the content type for Slack webhooks.
func (f *SlackFormatter) ContentType() string {
	return "application/json"
}

func colorToHex(color int) string {
	return fmt.Sprintf("#%06X", color)
}

// slackEscape escapes the characters Slack mrkdwn treats as control.
func slackEscape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
