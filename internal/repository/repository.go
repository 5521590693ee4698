// Package repository is the asynchronous mutation layer over storage.
//
// Every mutation runs on its own goroutine and reports through a Future
// owned by that call. Mutations on the same row are serialised; mutations
// on different rows have no relative order. Reads are synchronous.
package repository

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/manav03panchal/medtrack/internal/config"
	"github.com/manav03panchal/medtrack/internal/errors"
	"github.com/manav03panchal/medtrack/internal/logging"
	"github.com/manav03panchal/medtrack/internal/model"
	"github.com/manav03panchal/medtrack/internal/storage"
)

// Options configures a Repository.
type Options struct {
	// ConflictRetries bounds retries of a transaction that lost a write conflict.
	ConflictRetries int
}

// OptionsFromConfig builds Options from the runtime configuration.
func OptionsFromConfig(cfg *config.RuntimeConfig) Options {
	return Options{ConflictRetries: cfg.Repository.ConflictRetries}
}

// Repository owns the storage handle and every read and write against it.
type Repository struct {
	db   *storage.DB
	meds *storage.MedicationRepo
	rems *storage.ReminderRepo

	rows     *rowLocks
	tables   tableLocks
	retries  int
	validate *validator.Validate
	live     *LiveMedications

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// New wraps an open database. The repository takes ownership of db and
// closes it in Close.
func New(db *storage.DB, opts Options) (*Repository, error) {
	r := &Repository{
		db:       db,
		meds:     storage.NewMedicationRepo(db),
		rems:     storage.NewReminderRepo(db),
		rows:     newRowLocks(),
		retries:  max(opts.ConflictRetries, 0),
		validate: newValidator(),
	}
	r.live = newLiveMedications(r.meds.List)

	if err := r.live.refresh(); err != nil {
		return nil, errors.NewPersistenceError("load medications", "failed to read medications", err)
	}
	return r, nil
}

// Close waits for in-flight mutations and closes storage.
// Mutations submitted afterwards resolve with errors.ErrClosed.
func (r *Repository) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	r.wg.Wait()
	return r.db.Close()
}

// DB returns the storage handle for maintenance commands.
func (r *Repository) DB() *storage.DB {
	return r.db
}

// submit runs fn on a tracked worker goroutine.
func submit[T any](r *Repository, op string, fn func() (T, error)) *Future[T] {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		var zero T
		return Resolved(zero, errors.NewPersistenceError(op, "repository closed", errors.ErrClosed))
	}
	r.wg.Add(1)
	r.mu.RUnlock()

	f := newFuture[T]()
	go func() {
		defer r.wg.Done()
		start := time.Now()

		val, err := fn()
		if err != nil {
			logging.Warn("mutation failed", logging.KeyOperation, op, logging.KeyError, err)
		} else {
			logging.DebugLog("mutation committed", logging.KeyOperation, op,
				logging.KeyDuration, time.Since(start).Milliseconds())
		}
		f.resolve(val, err)
	}()
	return f
}

// rejected returns a future already failed with err.
func rejected[T any](err error) *Future[T] {
	var zero T
	return Resolved(zero, err)
}

// update runs fn in a read-write transaction, retrying write conflicts.
func (r *Repository) update(op string, fn func(tx *storage.Tx) error) error {
	var err error
	for attempt := 0; attempt <= r.retries; attempt++ {
		err = r.db.Update(fn)
		if !storage.IsErrConflict(err) {
			break
		}
		logging.DebugLog("transaction conflict", logging.KeyOperation, op, logging.KeyAttempt, attempt+1)
	}
	return wrapPersistence(op, err)
}

// wrapPersistence classifies storage failures. Invalid requests raised
// inside a transaction pass through unchanged.
func wrapPersistence(op string, err error) error {
	if err == nil || errors.IsInvalidRequest(err) || errors.IsPersistence(err) {
		return err
	}
	return errors.NewPersistenceError(op, "write failed", err)
}

func medicationRow(pk int64) string {
	return model.GenerateKey(model.PrefixMedication, pk)
}

func reminderRow(pk int64) string {
	return model.GenerateKey(model.PrefixReminder, pk)
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct turns validator failures into an InvalidRequestError for the first field.
func (r *Repository) validateStruct(v any) error {
	err := r.validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return errors.NewInvalidRequest(err.Error(), errors.ErrInvalidField)
	}

	fe := verrs[0]
	field := fe.Field()
	if fe.Tag() == "required" {
		return errors.NewInvalidField(field, "", "missing required field", errors.ErrMissingField)
	}
	return errors.NewInvalidField(field, fmt.Sprint(fe.Value()),
		fmt.Sprintf("%s fails %s=%s", field, fe.Tag(), fe.Param()), errors.ErrInvalidField)
}

func validateSchedule(date, clock string, intervalIndex int) error {
	if err := model.ValidateDate(date); err != nil {
		return errors.NewInvalidField("date", date, "invalid date", errors.ErrInvalidDateTime)
	}
	if err := model.ValidateTime(clock); err != nil {
		return errors.NewInvalidField("time", clock, "invalid time", errors.ErrInvalidDateTime)
	}
	if !model.IsValidIntervalIndex(intervalIndex) {
		return errors.NewInvalidField("interval", fmt.Sprint(intervalIndex), "invalid interval", errors.ErrInvalidInterval)
	}
	return nil
}

// =============================================================================
// Reads
// =============================================================================

// GetMedicationByName looks a medication up through the name index.
func (r *Repository) GetMedicationByName(name string) (*model.Medication, bool, error) {
	return found(r.meds.GetByName(name))
}

// GetMedicationByID looks a medication up by primary key.
func (r *Repository) GetMedicationByID(pk int64) (*model.Medication, bool, error) {
	return found(r.meds.Get(pk))
}

// GetReminder looks a reminder up by primary key.
func (r *Repository) GetReminder(pk int64) (*model.Reminder, bool, error) {
	return found(r.rems.Get(pk))
}

func found[T any](v *T, err error) (*T, bool, error) {
	if storage.IsErrKeyNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.NewPersistenceError("read", "read failed", err)
	}
	return v, true, nil
}

// GetAllMedications returns the live medication collection.
func (r *Repository) GetAllMedications() *LiveMedications {
	return r.live
}

// ListReminders returns every reminder in primary key order.
func (r *Repository) ListReminders() ([]*model.Reminder, error) {
	rems, err := r.rems.List()
	if err != nil {
		return nil, errors.NewPersistenceError("list reminders", "read failed", err)
	}
	return rems, nil
}

// ListRemindersByClassification returns the reminders of one classification
// in primary key order.
func (r *Repository) ListRemindersByClassification(c model.Classification) ([]*model.Reminder, error) {
	rems, err := r.rems.ListByClassification(c)
	if err != nil {
		return nil, errors.NewPersistenceError("list reminders", "read failed", err)
	}
	return rems, nil
}

// ListRemindersByOwner returns the reminders belonging to a medication,
// including any its reminder ID list no longer names.
func (r *Repository) ListRemindersByOwner(medKey int64) ([]*model.Reminder, error) {
	rems, err := r.rems.ListByOwner(medKey)
	if err != nil {
		return nil, errors.NewPersistenceError("list reminders", "read failed", err)
	}
	return rems, nil
}

// SelectNextReminders returns up to n reminders ordered by date and time,
// ties broken by primary key.
func (r *Repository) SelectNextReminders(n int) ([]*model.Reminder, error) {
	if n <= 0 {
		return []*model.Reminder{}, nil
	}

	rems, err := r.ListReminders()
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(rems, func(a, b *model.Reminder) int {
		return cmp.Or(
			strings.Compare(a.DateTime(), b.DateTime()),
			cmp.Compare(a.PrimaryKey, b.PrimaryKey),
		)
	})

	if len(rems) > n {
		rems = rems[:n]
	}
	return rems, nil
}
