// Package router is the single entry point for mutation requests. It routes
// each request by entity kind, validates and derives state, hands the
// result to the repository and tells the notification trigger about
// reminders whose schedule changed.
package router

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/manav03panchal/medtrack/internal/errors"
	"github.com/manav03panchal/medtrack/internal/logging"
	"github.com/manav03panchal/medtrack/internal/model"
	"github.com/manav03panchal/medtrack/internal/repository"
	"github.com/manav03panchal/medtrack/internal/validate"
)

// Field keys recognised by ProcessInput for medications.
const (
	FieldName      = "name"
	FieldDosage    = "dosage"
	FieldFirstDate = "first-date"
	FieldInterval  = "interval"
)

// NotificationTrigger arranges delivery of a reminder at its pending
// occurrence. Calls are fire-and-forget.
type NotificationTrigger interface {
	ScheduleNotification(reminderKey int64)
}

// Canceller is implemented by triggers that can drop a pending
// notification. The router cancels through it when reminders are deleted.
type Canceller interface {
	Cancel(reminderKey int64)
}

// NopTrigger ignores every call.
type NopTrigger struct{}

// ScheduleNotification implements NotificationTrigger.
func (NopTrigger) ScheduleNotification(int64) {}

// InputResult is the outcome of a medication input request.
type InputResult struct {
	MedicationKey int64
	ReminderKey   int64
	Reminder      *model.Reminder
}

// Router validates and dispatches requests.
type Router struct {
	repo    *repository.Repository
	trigger NotificationTrigger
	now     func() time.Time
}

// Option configures a Router.
type Option func(*Router)

// WithClock sets the clock used for recurrence and acknowledgement times.
func WithClock(now func() time.Time) Option {
	return func(r *Router) {
		r.now = now
	}
}

// New creates a router over repo. A nil trigger is replaced by NopTrigger.
func New(repo *repository.Repository, trigger NotificationTrigger, opts ...Option) *Router {
	if trigger == nil {
		trigger = NopTrigger{}
	}
	r := &Router{
		repo:    repo,
		trigger: trigger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Repository returns the repository the router writes to.
func (r *Router) Repository() *repository.Repository {
	return r.repo
}

// =============================================================================
// Input
// =============================================================================

// ProcessInput creates the entity described by fields. Malformed input fails
// synchronously; storage outcomes arrive through the returned future.
func (r *Router) ProcessInput(ctx context.Context, kind Kind, fields map[string]string) (*repository.Future[*InputResult], error) {
	ctx = logging.NewRequestContext(ctx)
	log := logging.FromContext(ctx).With(logging.KeyKind, kind.String())

	if fields == nil {
		return nil, errors.NewInvalidRequest("no fields provided", errors.ErrMissingField)
	}

	switch kind {
	case KindMedication:
		return r.processMedicationInput(log, fields)
	case KindDoctor, KindAppointment:
		return nil, unsupported(kind)
	default:
		return nil, unknownKind(kind)
	}
}

func (r *Router) processMedicationInput(log *logging.ContextLogger, fields map[string]string) (*repository.Future[*InputResult], error) {
	values, err := requireFields(fields, FieldName, FieldDosage, FieldFirstDate)
	if err != nil {
		return nil, err
	}
	values[FieldName] = validate.SanitizeText(values[FieldName])
	values[FieldDosage] = validate.SanitizeText(values[FieldDosage])

	interval := model.DefaultIntervalIndex
	if raw, ok := fields[FieldInterval]; ok && strings.TrimSpace(raw) != "" {
		interval, err = parseInterval(raw)
		if err != nil {
			return nil, err
		}
	}

	med := model.NewMedication(values[FieldName], values[FieldDosage], values[FieldFirstDate])
	if err := r.repo.CheckMedication(med); err != nil {
		return nil, err
	}
	if _, _, err := model.SplitDateTime(med.FirstDate); err != nil {
		return nil, errors.NewInvalidField(FieldFirstDate, med.FirstDate, "invalid first date", errors.ErrInvalidDateTime)
	}

	insert := r.repo.InsertMedicationAndReminder(med)
	return repository.Go(func() (*InputResult, error) {
		ins, err := insert.Wait()
		if err != nil {
			log.Warn("medication input failed", logging.KeyError, err)
			return nil, err
		}

		rem := ins.Reminder
		if interval != model.DefaultIntervalIndex {
			rem, err = r.repo.UpdateDateAndTime(ins.ReminderKey, rem.Date, rem.Time, interval).Wait()
			if err != nil {
				log.Warn("failed to set reminder interval", logging.KeyReminderID, ins.ReminderKey, logging.KeyError, err)
				return nil, &repository.PartialInsertError{
					Step:          repository.StepSetInterval,
					MedicationKey: ins.MedicationKey,
					ReminderKey:   ins.ReminderKey,
					Cause:         err,
				}
			}
		}

		r.trigger.ScheduleNotification(ins.ReminderKey)
		log.Info("medication added",
			logging.KeyMedicationID, ins.MedicationKey,
			logging.KeyReminderID, ins.ReminderKey,
			logging.KeyDueAt, rem.DateTime())
		return &InputResult{MedicationKey: ins.MedicationKey, ReminderKey: ins.ReminderKey, Reminder: rem}, nil
	}), nil
}

func requireFields(fields map[string]string, keys ...string) (map[string]string, error) {
	values := make(map[string]string, len(keys))
	for _, key := range keys {
		v := strings.TrimSpace(fields[key])
		if v == "" {
			return nil, errors.NewInvalidField(key, "", "missing required field", errors.ErrMissingField)
		}
		values[key] = v
	}
	return values, nil
}

func parseInterval(raw string) (int, error) {
	idx, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || !model.IsValidIntervalIndex(idx) {
		return 0, errors.NewInvalidField(FieldInterval, raw, "invalid interval", errors.ErrInvalidInterval)
	}
	return idx, nil
}

// =============================================================================
// Delete
// =============================================================================

// ProcessDeleteRequest deletes the named entity. Reminders belonging to a
// deleted medication are kept. The future resolves to whether a row was removed.
func (r *Router) ProcessDeleteRequest(ctx context.Context, kind Kind, name string) (*repository.Future[bool], error) {
	ctx = logging.NewRequestContext(ctx)
	log := logging.FromContext(ctx).With(logging.KeyKind, kind.String())

	name = validate.SanitizeText(name)
	if name == "" {
		return nil, errors.NewInvalidField(FieldName, "", "missing required field", errors.ErrMissingField)
	}

	switch kind {
	case KindMedication:
		log.Debug("deleting medication", logging.KeyName, name)
		return r.repo.DeleteMedicationByName(name), nil
	case KindDoctor, KindAppointment:
		return nil, unsupported(kind)
	default:
		return nil, unknownKind(kind)
	}
}

// ProcessReminderDeleteRequest deletes one reminder and cancels its pending
// notification. The future resolves to whether a row was removed.
func (r *Router) ProcessReminderDeleteRequest(ctx context.Context, reminderID int64) (*repository.Future[bool], error) {
	ctx = logging.NewRequestContext(ctx)
	log := logging.FromContext(ctx).With(logging.KeyReminderID, reminderID)

	if reminderID <= model.UnsetKey {
		return nil, errors.NewInvalidField("reminder", strconv.FormatInt(reminderID, 10), "invalid reminder id", errors.ErrInvalidField)
	}

	del := r.repo.DeleteReminderByID(reminderID)
	return repository.Go(func() (bool, error) {
		deleted, err := del.Wait()
		if err != nil {
			log.Warn("reminder delete failed", logging.KeyError, err)
			return false, err
		}
		r.cancel(reminderID)
		if deleted {
			log.Info("reminder deleted")
		}
		return deleted, nil
	}), nil
}

// =============================================================================
// Acknowledgement
// =============================================================================

// ProcessAcknowledgementRequest advances a reminder to its next occurrence
// and records an acknowledged or dismissed entry in the owner's log, then
// reschedules its notification.
func (r *Router) ProcessAcknowledgementRequest(ctx context.Context, kind Kind, reminderID int64, dismissed bool) (*repository.Future[*model.Reminder], error) {
	ctx = logging.NewRequestContext(ctx)
	log := logging.FromContext(ctx).With(logging.KeyKind, kind.String(), logging.KeyReminderID, reminderID)

	switch kind {
	case KindMedication:
		return r.acknowledgeMedication(log, reminderID, dismissed)
	case KindDoctor, KindAppointment:
		return nil, unsupported(kind)
	default:
		return nil, unknownKind(kind)
	}
}

func (r *Router) acknowledgeMedication(log *logging.ContextLogger, reminderID int64, dismissed bool) (*repository.Future[*model.Reminder], error) {
	if reminderID <= model.UnsetKey {
		return nil, errors.NewInvalidField("reminder", strconv.FormatInt(reminderID, 10), "invalid reminder id", errors.ErrInvalidField)
	}

	rem, ok, err := r.repo.GetReminder(reminderID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.NewInvalidField("reminder", strconv.FormatInt(reminderID, 10), "reminder not found", errors.ErrReminderNotFound)
	}
	if rem.Classification != model.ClassMedication {
		return nil, errors.NewInvalidField("reminder", strconv.FormatInt(reminderID, 10),
			"not a medication reminder", errors.ErrInvalidField)
	}

	status := model.AckAcknowledged
	if dismissed {
		status = model.AckDismissed
	}
	ack := r.repo.AcknowledgeReminder(reminderID, dismissed, r.now())
	return repository.Go(func() (*model.Reminder, error) {
		updated, err := ack.Wait()
		if err != nil {
			log.Warn("acknowledgement failed", logging.KeyError, err)
			return nil, err
		}
		r.trigger.ScheduleNotification(reminderID)
		log.Info("reminder advanced", logging.KeyStatus, string(status), logging.KeyDueAt, updated.DateTime())
		return updated, nil
	}), nil
}

// =============================================================================
// Clear
// =============================================================================

// ClearTableRequest deletes every row of one kind. Clearing medications also
// removes medication reminders. Resolves to the number of rows removed.
func (r *Router) ClearTableRequest(ctx context.Context, kind Kind) (*repository.Future[int], error) {
	ctx = logging.NewRequestContext(ctx)
	log := logging.FromContext(ctx).With(logging.KeyKind, kind.String())

	switch kind {
	case KindMedication:
		listed, err := r.repo.ListRemindersByClassification(model.ClassMedication)
		if err != nil {
			return nil, err
		}
		log.Info("clearing medications")
		return r.cancelAfter(listed, sum(r.repo.ClearAllMedications(), r.repo.DeleteAllMedicationReminders())), nil
	case KindAppointment:
		return r.ClearRemindersRequest(ctx, kind)
	case KindDoctor:
		return nil, unsupported(kind)
	default:
		return nil, unknownKind(kind)
	}
}

// ClearRemindersRequest deletes every reminder of one kind and leaves
// medications in place. Resolves to the number of reminders removed.
func (r *Router) ClearRemindersRequest(ctx context.Context, kind Kind) (*repository.Future[int], error) {
	ctx = logging.NewRequestContext(ctx)
	log := logging.FromContext(ctx).With(logging.KeyKind, kind.String())

	var (
		class model.Classification
		del   func() *repository.Future[int]
	)
	switch kind {
	case KindMedication:
		class, del = model.ClassMedication, r.repo.DeleteAllMedicationReminders
	case KindAppointment:
		class, del = model.ClassAppointment, r.repo.DeleteAllAppointmentReminders
	case KindDoctor:
		return nil, unsupported(kind)
	default:
		return nil, unknownKind(kind)
	}

	listed, err := r.repo.ListRemindersByClassification(class)
	if err != nil {
		return nil, err
	}
	log.Info("clearing reminders", logging.KeyCount, len(listed))
	return r.cancelAfter(listed, del()), nil
}

// ClearAllRemindersRequest deletes every reminder and leaves medications in
// place. Resolves to the number of reminders removed.
func (r *Router) ClearAllRemindersRequest(ctx context.Context) (*repository.Future[int], error) {
	ctx = logging.NewRequestContext(ctx)
	listed, err := r.repo.ListReminders()
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info("clearing all reminders", logging.KeyCount, len(listed))
	return r.cancelAfter(listed, r.repo.ClearAllReminders()), nil
}

// ClearAllTables deletes every medication and every reminder.
func (r *Router) ClearAllTables(ctx context.Context) *repository.Future[int] {
	ctx = logging.NewRequestContext(ctx)
	listed, err := r.repo.ListReminders()
	if err != nil {
		return repository.Resolved(0, err)
	}
	logging.FromContext(ctx).Info("clearing all tables")
	return r.cancelAfter(listed, sum(r.repo.ClearAllMedications(), r.repo.ClearAllReminders()))
}

// cancelAfter cancels the notifications of listed once del has succeeded.
// A reminder inserted between listing and deleting keeps its entry; the
// scheduler skips entries whose reminder is gone.
func (r *Router) cancelAfter(listed []*model.Reminder, del *repository.Future[int]) *repository.Future[int] {
	return repository.Go(func() (int, error) {
		n, err := del.Wait()
		if err != nil {
			return n, err
		}
		for _, rem := range listed {
			r.cancel(rem.PrimaryKey)
		}
		return n, nil
	})
}

func (r *Router) cancel(reminderKey int64) {
	if c, ok := r.trigger.(Canceller); ok {
		c.Cancel(reminderKey)
	}
}

func sum(futures ...*repository.Future[int]) *repository.Future[int] {
	return repository.Go(func() (int, error) {
		total := 0
		var errs []error
		for _, f := range futures {
			n, err := f.Wait()
			total += n
			if err != nil {
				errs = append(errs, err)
			}
		}
		return total, errors.Join(errs...)
	})
}

func unsupported(kind Kind) error {
	return errors.NewInvalidRequest(kind.String()+" requests are not supported yet", errors.ErrUnsupportedKind)
}

func unknownKind(kind Kind) error {
	return errors.NewInvalidField("kind", kind.String(), "unknown kind", errors.ErrUnknownKind)
}
