package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/manav03panchal/medtrack/internal/logging"
	"github.com/manav03panchal/medtrack/internal/model"
)

// Deliverer hands a due notification to the user.
type Deliverer interface {
	Deliver(ctx context.Context, n *model.Notification) error
}

// DelivererFunc adapts a function to Deliverer.
type DelivererFunc func(ctx context.Context, n *model.Notification) error

// Deliver implements Deliverer.
func (f DelivererFunc) Deliver(ctx context.Context, n *model.Notification) error {
	return f(ctx, n)
}

// Multi hands each notification to every deliverer in order. All are tried;
// their errors are joined.
func Multi(ds ...Deliverer) Deliverer {
	return DelivererFunc(func(ctx context.Context, n *model.Notification) error {
		var errs []error
		for _, d := range ds {
			if d == nil {
				continue
			}
			if err := d.Deliver(ctx, n); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

// LogDeliverer writes one structured log line per notification.
type LogDeliverer struct {
	// Logger defaults to the package logger.
	Logger *slog.Logger
}

// Deliver implements Deliverer.
func (d *LogDeliverer) Deliver(ctx context.Context, n *model.Notification) error {
	logger := d.Logger
	if logger == nil {
		logger = logging.LoggerFromContext(ctx)
	}
	logger.InfoContext(ctx, n.Title,
		"type", string(n.Type),
		logging.KeyReminderID, n.ReminderID,
		logging.KeyDueAt, n.DueAt.Format(model.DateTimeLayout),
	)
	return nil
}

// deliver builds the notification for a due reminder and hands it off.
func (s *Scheduler) deliver(ctx context.Context, reminderKey int64, dueAt time.Time) error {
	rem, ok, err := s.repo.GetReminder(reminderKey)
	if err != nil {
		return err
	}
	if !ok {
		logging.DebugContext(ctx, "due reminder no longer exists", logging.KeyReminderID, reminderKey)
		return nil
	}

	var med *model.Medication
	if rem.Classification == model.ClassMedication {
		if m, found := s.repo.GetAllMedications().Find(rem.OwnerKey); found {
			med = m
		}
	}

	s.mu.Lock()
	d := s.deliverer
	s.mu.Unlock()

	return d.Deliver(ctx, model.NotificationForReminder(rem, med, dueAt))
}

// onceSchedule is a cron.Schedule that fires once at a fixed time. An
// occurrence already past on the first call fires immediately.
type onceSchedule struct {
	at time.Time

	mu   sync.Mutex
	next time.Time
	done bool
}

// Next implements cron.Schedule.
func (s *onceSchedule) Next(t time.Time) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.done:
		return time.Time{}
	case !s.next.IsZero() && !t.Before(s.next):
		s.done = true
		return time.Time{}
	case t.Before(s.at):
		s.next = s.at
	default:
		s.next = t
	}
	return s.next
}
