// Package scheduler arranges notification delivery for reminders using
// one-shot cron entries.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/manav03panchal/medtrack/internal/logging"
	"github.com/manav03panchal/medtrack/internal/repository"
)

// Scheduler keeps at most one cron entry per reminder, firing at the
// reminder's pending occurrence. It implements router.NotificationTrigger.
type Scheduler struct {
	cron      *cron.Cron
	repo      *repository.Repository
	deliverer Deliverer

	mu      sync.Mutex
	entries map[int64]*entry
	running bool
}

type entry struct {
	id       cron.EntryID
	schedule *onceSchedule
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithCron replaces the underlying cron instance.
func WithCron(c *cron.Cron) Option {
	return func(s *Scheduler) {
		s.cron = c
	}
}

// NewScheduler creates a stopped scheduler. A nil deliverer logs notifications.
func NewScheduler(repo *repository.Repository, deliverer Deliverer, opts ...Option) *Scheduler {
	if deliverer == nil {
		deliverer = &LogDeliverer{}
	}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.Local),
			cron.WithLogger(cronLogger{}),
			cron.WithChain(cron.Recover(cronLogger{})),
		),
		repo:      repo,
		deliverer: deliverer,
		entries:   make(map[int64]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetDeliverer replaces the deliverer for notifications fired afterwards.
func (s *Scheduler) SetDeliverer(d Deliverer) {
	if d == nil {
		d = &LogDeliverer{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliverer = d
}

// Start starts firing entries.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.cron.Start()
	logging.DebugLog("scheduler started", logging.KeyCount, len(s.entries))
}

// Stop stops the scheduler and waits for running deliveries.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	ctx := s.cron.Stop()
	<-ctx.Done()
	logging.DebugLog("scheduler stopped")
}

// ScheduleNotification replaces the entry for reminderKey with one firing at
// the reminder's current occurrence. An occurrence already past fires as
// soon as the scheduler runs. Unknown reminders lose their entry.
func (s *Scheduler) ScheduleNotification(reminderKey int64) {
	rem, ok, err := s.repo.GetReminder(reminderKey)
	if err != nil {
		logging.Warn("failed to load reminder for scheduling", logging.KeyReminderID, reminderKey, logging.KeyError, err)
		return
	}
	if !ok {
		s.Cancel(reminderKey)
		return
	}

	at, err := rem.Occurrence()
	if err != nil {
		logging.Warn("reminder has an invalid occurrence", logging.KeyReminderID, reminderKey, logging.KeyError, err)
		s.Cancel(reminderKey)
		return
	}

	sched := &onceSchedule{at: at}
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[reminderKey]; ok {
		s.cron.Remove(old.id)
	}
	id := s.cron.Schedule(sched, cron.FuncJob(func() {
		s.fire(reminderKey, sched)
	}))
	s.entries[reminderKey] = &entry{id: id, schedule: sched}

	logging.DebugLog("notification scheduled", logging.KeyReminderID, reminderKey, logging.KeyDueAt, rem.DateTime())
}

// Cancel removes the entry for reminderKey, if any.
func (s *Scheduler) Cancel(reminderKey int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.entries[reminderKey]; ok {
		s.cron.Remove(old.id)
		delete(s.entries, reminderKey)
	}
}

// Resync schedules the next n reminders. It returns how many were scheduled.
func (s *Scheduler) Resync(n int) (int, error) {
	rems, err := s.repo.SelectNextReminders(n)
	if err != nil {
		return 0, err
	}
	for _, rem := range rems {
		s.ScheduleNotification(rem.PrimaryKey)
	}
	logging.Info("scheduler resynced", logging.KeyCount, len(rems))
	return len(rems), nil
}

// Scheduled returns when the entry for reminderKey fires.
func (s *Scheduler) Scheduled(reminderKey int64) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[reminderKey]
	if !ok {
		return time.Time{}, false
	}
	return e.schedule.at, true
}

// Len returns the number of pending entries.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// NextRun returns the earliest pending occurrence.
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	var next time.Time
	for _, e := range s.entries {
		if next.IsZero() || e.schedule.at.Before(next) {
			next = e.schedule.at
		}
	}
	return next
}

// fire runs on the cron goroutine for a due entry. Entries replaced since
// they were scheduled are ignored.
func (s *Scheduler) fire(reminderKey int64, sched *onceSchedule) {
	s.mu.Lock()
	cur, ok := s.entries[reminderKey]
	if !ok || cur.schedule != sched {
		s.mu.Unlock()
		return
	}
	delete(s.entries, reminderKey)
	s.cron.Remove(cur.id)
	s.mu.Unlock()

	ctx := logging.NewRequestContext(context.Background())
	if err := s.deliver(ctx, reminderKey, sched.at); err != nil {
		logging.ErrorContext(ctx, "notification delivery failed", logging.KeyReminderID, reminderKey, logging.KeyError, err)
	}
}
