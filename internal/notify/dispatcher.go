package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/manav03panchal/medtrack/internal/config"
	"github.com/manav03panchal/medtrack/internal/logging"
	"github.com/manav03panchal/medtrack/internal/model"
)

// ErrWebhookNotFound is returned when a named webhook is not configured.
var ErrWebhookNotFound = errors.New("webhook not found")

// Dispatcher sends notifications to every enabled webhook.
type Dispatcher struct {
	webhooks   []config.WebhookConfig
	httpClient *HTTPClient
}

// NewDispatcher creates a dispatcher for the configured webhooks.
func NewDispatcher(cfg config.NotifyConfig) *Dispatcher {
	return &Dispatcher{
		webhooks:   cfg.Webhooks,
		httpClient: NewHTTPClient(cfg),
	}
}

// DispatchResult contains the result of dispatching to a single webhook.
type DispatchResult struct {
	WebhookName string        `json:"webhook"`
	Success     bool          `json:"success"`
	StatusCode  int           `json:"status_code,omitempty"`
	Attempts    int           `json:"attempts"`
	Duration    time.Duration `json:"duration_ns"`
	Error       error         `json:"-"`
}

// Webhooks returns every configured webhook, disabled ones included.
func (d *Dispatcher) Webhooks() []config.WebhookConfig {
	return d.webhooks
}

// Enabled returns the webhooks that receive notifications.
func (d *Dispatcher) Enabled() []config.WebhookConfig {
	var out []config.WebhookConfig
	for _, w := range d.webhooks {
		if !w.Disabled {
			out = append(out, w)
		}
	}
	return out
}

// HasEnabledWebhooks returns true if there are any enabled webhooks.
func (d *Dispatcher) HasEnabledWebhooks() bool {
	return len(d.Enabled()) > 0
}

// SendNotification sends n to all enabled webhooks concurrently.
func (d *Dispatcher) SendNotification(ctx context.Context, n *model.Notification) []DispatchResult {
	webhooks := d.Enabled()
	if len(webhooks) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	results := make([]DispatchResult, len(webhooks))
	for i, webhook := range webhooks {
		wg.Add(1)
		go func(idx int, wh config.WebhookConfig) {
			defer wg.Done()
			results[idx] = d.sendToWebhook(ctx, n, wh)
		}(i, webhook)
	}
	wg.Wait()

	return results
}

// Deliver sends n to every enabled webhook and joins the failures.
func (d *Dispatcher) Deliver(ctx context.Context, n *model.Notification) error {
	var errs []error
	for _, r := range d.SendNotification(ctx, n) {
		if r.Error != nil {
			errs = append(errs, fmt.Errorf("webhook %s: %w", r.WebhookName, r.Error))
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) sendToWebhook(ctx context.Context, n *model.Notification, webhook config.WebhookConfig) DispatchResult {
	result := DispatchResult{WebhookName: webhook.Name}

	formatter := formatterFor(webhook)
	payload, err := formatter.Format(n)
	if err != nil {
		result.Error = fmt.Errorf("failed to format notification: %w", err)
		return result
	}

	sent := d.httpClient.Send(ctx, webhook.URL, formatter.ContentType(), payload)
	result.StatusCode = sent.StatusCode
	result.Attempts = sent.Attempts
	result.Duration = sent.Duration
	result.Error = sent.Error
	result.Success = sent.Error == nil

	if result.Success {
		logging.DebugContext(ctx, "webhook delivered",
			logging.KeyWebhook, webhook.Name,
			logging.KeyReminderID, n.ReminderID,
			logging.KeyDuration, sent.Duration.Milliseconds())
	} else {
		logging.WarnContext(ctx, "webhook delivery failed",
			logging.KeyWebhook, webhook.Name,
			logging.KeyReminderID, n.ReminderID,
			logging.KeyAttempt, sent.Attempts,
			logging.KeyError, sent.Error)
	}

	return result
}

// SendToSingle sends a notification to one webhook by name, disabled or not.
func (d *Dispatcher) SendToSingle(ctx context.Context, n *model.Notification, name string) DispatchResult {
	for _, w := range d.webhooks {
		if w.Name == name {
			return d.sendToWebhook(ctx, n, w)
		}
	}
	return DispatchResult{
		WebhookName: name,
		Error:       fmt.Errorf("%w: %s", ErrWebhookNotFound, name),
	}
}

// NewTestNotification is the payload sent by TestWebhook.
func NewTestNotification(name string, now time.Time) *model.Notification {
	n := model.NewNotification(model.NotifyMedication, "medtrack test",
		"This is a test notification from medtrack. If you see this, your webhook is configured correctly!").
		WithField("Webhook", name)
	n.DueAt = now
	n.Timestamp = now
	return n
}

// TestWebhook sends a test notification to a specific webhook.
func (d *Dispatcher) TestWebhook(ctx context.Context, name string) DispatchResult {
	return d.SendToSingle(ctx, NewTestNotification(name, time.Now()), name)
}
