package scheduler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/medtrack/internal/model"
	"github.com/manav03panchal/medtrack/internal/repository"
	"github.com/manav03panchal/medtrack/internal/storage"
)

func setupTestRepo(t *testing.T) *repository.Repository {
	db, err := storage.Open(storage.Options{InMemory: true})
	require.NoError(t, err)
	repo, err := repository.New(db, repository.Options{ConflictRetries: 3})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

type channelDeliverer chan *model.Notification

func (c channelDeliverer) Deliver(_ context.Context, n *model.Notification) error {
	c <- n
	return nil
}

func insertReminder(t *testing.T, repo *repository.Repository, date, clock string) int64 {
	t.Helper()
	pk, err := repo.InsertReminder(&model.Reminder{Classification: model.ClassMedication, Date: date, Time: clock}).Wait()
	require.NoError(t, err)
	return pk
}

// =============================================================================
// Schedule Tests
// =============================================================================

func TestOnceSchedule(t *testing.T) {
	at := time.Date(2030, 1, 1, 8, 0, 0, 0, time.Local)

	s := &onceSchedule{at: at}
	assert.Equal(t, at, s.Next(at.Add(-time.Hour)))
	assert.True(t, s.Next(at).IsZero(), "fired entries never run again")
	assert.True(t, s.Next(at.Add(-time.Hour)).IsZero())

	overdue := &onceSchedule{at: at}
	now := at.Add(time.Minute)
	assert.Equal(t, now, overdue.Next(now))
	assert.True(t, overdue.Next(now.Add(time.Second)).IsZero())
}

func TestScheduleNotificationReplacesEntry(t *testing.T) {
	repo := setupTestRepo(t)
	s := NewScheduler(repo, channelDeliverer(make(chan *model.Notification, 1)))

	key := insertReminder(t, repo, "2099-01-01", "08:00")
	s.ScheduleNotification(key)
	s.ScheduleNotification(key)
	assert.Equal(t, 1, s.Len())
	assert.Len(t, s.cron.Entries(), 1)

	_, err := repo.UpdateDateAndTime(key, "2099-02-01", "09:30", 0).Wait()
	require.NoError(t, err)
	s.ScheduleNotification(key)

	at, ok := s.Scheduled(key)
	require.True(t, ok)
	assert.Equal(t, "2099-02-01 09:30", at.Format(model.DateTimeLayout))
	assert.Equal(t, at, s.NextRun())
	assert.Len(t, s.cron.Entries(), 1)
}

func TestScheduleNotificationDeletedReminder(t *testing.T) {
	repo := setupTestRepo(t)
	s := NewScheduler(repo, nil)

	key := insertReminder(t, repo, "2099-01-01", "08:00")
	s.ScheduleNotification(key)
	require.Equal(t, 1, s.Len())

	_, err := repo.DeleteReminderByID(key).Wait()
	require.NoError(t, err)
	s.ScheduleNotification(key)

	assert.Zero(t, s.Len())
	assert.Empty(t, s.cron.Entries())
	assert.True(t, s.NextRun().IsZero())
}

func TestResync(t *testing.T) {
	repo := setupTestRepo(t)
	s := NewScheduler(repo, nil)

	insertReminder(t, repo, "2099-01-03", "08:00")
	first := insertReminder(t, repo, "2099-01-01", "08:00")
	second := insertReminder(t, repo, "2099-01-02", "08:00")

	n, err := s.Resync(2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, ok := s.Scheduled(first)
	assert.True(t, ok)
	_, ok = s.Scheduled(second)
	assert.True(t, ok)
	assert.Equal(t, 2, s.Len())
}

// =============================================================================
// Delivery Tests
// =============================================================================

func TestOverdueReminderDeliveredOnStart(t *testing.T) {
	repo := setupTestRepo(t)
	delivered := make(channelDeliverer, 1)
	s := NewScheduler(repo, delivered)

	med := model.NewMedication("Aspirin", "100mg", "2024-05-01 08:00")
	res, err := repo.InsertMedicationAndReminder(med).Wait()
	require.NoError(t, err)

	s.ScheduleNotification(res.ReminderKey)
	s.Start()
	defer s.Stop()

	select {
	case n := <-delivered:
		assert.Equal(t, res.ReminderKey, n.ReminderID)
		assert.Equal(t, model.NotifyMedication, n.Type)
		assert.Equal(t, "Time to take Aspirin", n.Title)
		assert.Equal(t, "2024-05-01 08:00", n.DueAt.Format(model.DateTimeLayout))
	case <-time.After(5 * time.Second):
		t.Fatal("overdue reminder was not delivered")
	}

	assert.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 10*time.Millisecond)
}

func TestFireIgnoresReplacedEntry(t *testing.T) {
	repo := setupTestRepo(t)
	delivered := make(channelDeliverer, 1)
	s := NewScheduler(repo, delivered)

	key := insertReminder(t, repo, "2099-01-01", "08:00")
	s.ScheduleNotification(key)

	s.fire(key, &onceSchedule{at: time.Now()})
	assert.Empty(t, delivered)
	assert.Equal(t, 1, s.Len())
}

func TestSetDeliverer(t *testing.T) {
	repo := setupTestRepo(t)
	s := NewScheduler(repo, nil)
	delivered := make(channelDeliverer, 1)
	s.SetDeliverer(delivered)

	key := insertReminder(t, repo, "2024-05-01", "08:00")
	require.NoError(t, s.deliver(context.Background(), key, time.Now()))

	n := <-delivered
	assert.Equal(t, key, n.ReminderID)
	assert.Equal(t, "Reminder due", n.Title)
}

func TestWithCron(t *testing.T) {
	c := cron.New(cron.WithLocation(time.UTC))
	s := NewScheduler(setupTestRepo(t), nil, WithCron(c))
	assert.Same(t, c, s.cron)
}

func TestStartStopIdempotent(t *testing.T) {
	s := NewScheduler(setupTestRepo(t), nil)
	s.Stop()
	s.Start()
	s.Start()
	s.Stop()
	s.Stop()
}

func TestLogDeliverer(t *testing.T) {
	var buf bytes.Buffer
	d := &LogDeliverer{Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	rem := &model.Reminder{PrimaryKey: 3, Classification: model.ClassMedication, Date: "2024-05-01", Time: "08:00"}
	due, err := rem.Occurrence()
	require.NoError(t, err)

	err = d.Deliver(context.Background(), model.NotificationForReminder(rem, nil, due))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "reminder_id=3")
	assert.Contains(t, buf.String(), `due_at="2024-05-01 08:00"`)
}

func TestMulti(t *testing.T) {
	first := make(channelDeliverer, 1)
	second := make(channelDeliverer, 1)
	failing := DelivererFunc(func(context.Context, *model.Notification) error {
		return errors.New("webhook down")
	})

	d := Multi(first, nil, failing, second)
	err := d.Deliver(context.Background(), model.NewNotification(model.NotifyMedication, "t", "m"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook down")
	assert.Len(t, first, 1)
	assert.Len(t, second, 1)
}
