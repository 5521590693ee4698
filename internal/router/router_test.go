package router

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/medtrack/internal/errors"
	"github.com/manav03panchal/medtrack/internal/model"
	"github.com/manav03panchal/medtrack/internal/repository"
	"github.com/manav03panchal/medtrack/internal/storage"
)

type recordingTrigger struct {
	mu        sync.Mutex
	calls     []int64
	cancelled []int64
}

func (t *recordingTrigger) Cancel(reminderKey int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelled = append(t.cancelled, reminderKey)
}

func (t *recordingTrigger) Cancelled() []int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]int64(nil), t.cancelled...)
}

func (t *recordingTrigger) ScheduleNotification(reminderKey int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = append(t.calls, reminderKey)
}

func (t *recordingTrigger) Calls() []int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]int64(nil), t.calls...)
}

var fixedNow = time.Date(2024, 5, 1, 8, 5, 0, 0, time.Local)

func setupTestRouter(t *testing.T) (*Router, *recordingTrigger) {
	db, err := storage.Open(storage.Options{InMemory: true})
	require.NoError(t, err)
	repo, err := repository.New(db, repository.Options{ConflictRetries: 3})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	trigger := &recordingTrigger{}
	return New(repo, trigger, WithClock(func() time.Time { return fixedNow })), trigger
}

func await[T any](t *testing.T, f *repository.Future[T]) T {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	val, err := f.Await(ctx)
	require.NoError(t, err)
	return val
}

func medicationFields(name string) map[string]string {
	return map[string]string{
		FieldName:      name,
		FieldDosage:    "100mg",
		FieldFirstDate: "2024-05-01 08:00",
	}
}

func addMedication(t *testing.T, r *Router, name string) *InputResult {
	t.Helper()
	f, err := r.ProcessInput(context.Background(), KindMedication, medicationFields(name))
	require.NoError(t, err)
	return await(t, f)
}

func medicationCount(r *Router) int {
	return r.Repository().GetAllMedications().Len()
}

func reminderCount(t *testing.T, r *Router) int {
	rems, err := r.Repository().ListReminders()
	require.NoError(t, err)
	return len(rems)
}

// =============================================================================
// Kind Tests
// =============================================================================

func TestKind(t *testing.T) {
	for _, k := range AllKinds() {
		assert.True(t, k.Valid(), k.String())
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}

	assert.False(t, Kind(0).Valid())
	assert.False(t, Kind(42).Valid())

	k, err := ParseKind(" M ")
	require.NoError(t, err)
	assert.Equal(t, KindMedication, k)

	_, err = ParseKind("patient")
	assert.ErrorIs(t, err, errors.ErrUnknownKind)
	assert.True(t, errors.IsInvalidRequest(err))
}

// =============================================================================
// ProcessInput Tests
// =============================================================================

func TestProcessInputMedication(t *testing.T) {
	r, trigger := setupTestRouter(t)

	res := addMedication(t, r, "Aspirin")
	assert.Equal(t, "2024-05-01", res.Reminder.Date)
	assert.Equal(t, "08:00", res.Reminder.Time)
	assert.Equal(t, 0, res.Reminder.IntervalIndex)
	assert.Equal(t, []int64{res.ReminderKey}, trigger.Calls())

	med, ok, err := r.Repository().GetMedicationByName("Aspirin")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, res.MedicationKey, med.PrimaryKey)
	assert.Equal(t, []int64{res.ReminderKey}, med.ReminderIDs)
}

func TestProcessInputWithInterval(t *testing.T) {
	r, trigger := setupTestRouter(t)

	fields := medicationFields("Aspirin")
	fields[FieldInterval] = "6"
	fields["colour"] = "ignored"

	f, err := r.ProcessInput(context.Background(), KindMedication, fields)
	require.NoError(t, err)
	res := await(t, f)
	assert.Equal(t, 6, res.Reminder.IntervalIndex)

	stored, ok, err := r.Repository().GetReminder(res.ReminderKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 6, stored.IntervalIndex)
	assert.Equal(t, "2024-05-01 08:00", stored.DateTime())
	assert.Len(t, trigger.Calls(), 1)
}

func TestProcessInputInvalid(t *testing.T) {
	r, trigger := setupTestRouter(t)

	tests := []struct {
		name   string
		kind   Kind
		fields map[string]string
		cause  error
	}{
		{"nil_fields", KindMedication, nil, errors.ErrMissingField},
		{"unknown_kind", Kind(99), medicationFields("Aspirin"), errors.ErrUnknownKind},
		{"missing_name", KindMedication, map[string]string{FieldDosage: "1", FieldFirstDate: "2024-05-01 08:00"}, errors.ErrMissingField},
		{"blank_dosage", KindMedication, map[string]string{FieldName: "A", FieldDosage: "  ", FieldFirstDate: "2024-05-01 08:00"}, errors.ErrMissingField},
		{"bad_first_date", KindMedication, map[string]string{FieldName: "A", FieldDosage: "1", FieldFirstDate: "May 1st"}, errors.ErrInvalidDateTime},
		{"bad_interval", KindMedication, map[string]string{FieldName: "A", FieldDosage: "1", FieldFirstDate: "2024-05-01 08:00", FieldInterval: "12"}, errors.ErrInvalidInterval},
		{"non_numeric_interval", KindMedication, map[string]string{FieldName: "A", FieldDosage: "1", FieldFirstDate: "2024-05-01 08:00", FieldInterval: "daily"}, errors.ErrInvalidInterval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := r.ProcessInput(context.Background(), tt.kind, tt.fields)
			assert.Nil(t, f)
			assert.True(t, errors.IsInvalidRequest(err))
			assert.ErrorIs(t, err, tt.cause)
		})
	}

	assert.Zero(t, medicationCount(r))
	assert.Empty(t, trigger.Calls())
}

func TestProcessInputUnsupportedKindsTouchNothing(t *testing.T) {
	r, trigger := setupTestRouter(t)

	for _, kind := range []Kind{KindDoctor, KindAppointment} {
		f, err := r.ProcessInput(context.Background(), kind, medicationFields("Aspirin"))
		assert.Nil(t, f)
		assert.ErrorIs(t, err, errors.ErrUnsupportedKind)
		assert.True(t, errors.IsInvalidRequest(err))
	}

	assert.Zero(t, medicationCount(r))
	assert.Zero(t, reminderCount(t, r))
	assert.Empty(t, trigger.Calls())
}

func TestProcessInputDuplicateName(t *testing.T) {
	r, trigger := setupTestRouter(t)
	addMedication(t, r, "Aspirin")

	f, err := r.ProcessInput(context.Background(), KindMedication, medicationFields("Aspirin"))
	require.NoError(t, err)
	_, err = f.Wait()
	assert.ErrorIs(t, err, errors.ErrDuplicateName)
	assert.Len(t, trigger.Calls(), 1)
}

func TestProcessInputSanitizesText(t *testing.T) {
	r, _ := setupTestRouter(t)

	res := addMedication(t, r, "  Vitamin\t  D3\x00 ")
	med, ok, err := r.Repository().GetMedicationByID(res.MedicationKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Vitamin D3", med.Name)

	// Deletes normalise the name the same way.
	f, err := r.ProcessDeleteRequest(context.Background(), KindMedication, "Vitamin   D3")
	require.NoError(t, err)
	assert.True(t, await(t, f))
}

func TestProcessInputConcurrent(t *testing.T) {
	r, trigger := setupTestRouter(t)

	a, err := r.ProcessInput(context.Background(), KindMedication, medicationFields("Aspirin"))
	require.NoError(t, err)
	b, err := r.ProcessInput(context.Background(), KindMedication, medicationFields("Ibuprofen"))
	require.NoError(t, err)

	resA, resB := await(t, a), await(t, b)
	assert.NotEqual(t, resA.MedicationKey, resB.MedicationKey)
	assert.NotEqual(t, resA.ReminderKey, resB.ReminderKey)
	assert.ElementsMatch(t, []int64{resA.ReminderKey, resB.ReminderKey}, trigger.Calls())
}

// =============================================================================
// ProcessDeleteRequest Tests
// =============================================================================

func TestProcessDeleteRequest(t *testing.T) {
	r, _ := setupTestRouter(t)
	addMedication(t, r, "Aspirin")
	addMedication(t, r, "Ibuprofen")

	f, err := r.ProcessDeleteRequest(context.Background(), KindMedication, "Aspirin")
	require.NoError(t, err)
	assert.True(t, await(t, f))

	_, ok, err := r.Repository().GetMedicationByName("Aspirin")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = r.Repository().GetMedicationByName("Ibuprofen")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, 2, reminderCount(t, r))

	f, err = r.ProcessDeleteRequest(context.Background(), KindMedication, "Aspirin")
	require.NoError(t, err)
	assert.False(t, await(t, f))
}

func TestProcessDeleteRequestInvalid(t *testing.T) {
	r, _ := setupTestRouter(t)

	_, err := r.ProcessDeleteRequest(context.Background(), KindMedication, " ")
	assert.ErrorIs(t, err, errors.ErrMissingField)

	_, err = r.ProcessDeleteRequest(context.Background(), KindDoctor, "Dr Who")
	assert.ErrorIs(t, err, errors.ErrUnsupportedKind)

	_, err = r.ProcessDeleteRequest(context.Background(), Kind(0), "Aspirin")
	assert.ErrorIs(t, err, errors.ErrUnknownKind)
}

// =============================================================================
// ProcessAcknowledgementRequest Tests
// =============================================================================

func ackLog(t *testing.T, r *Router, medKey int64) model.AcknowledgementLog {
	med, ok, err := r.Repository().GetMedicationByID(medKey)
	require.NoError(t, err)
	require.True(t, ok)
	log, err := model.ParseAcknowledgementLog(med.AcknowledgementList)
	require.NoError(t, err)
	return log
}

func TestAcknowledgeAdvancesReminder(t *testing.T) {
	r, trigger := setupTestRouter(t)
	res := addMedication(t, r, "Aspirin")

	f, err := r.ProcessAcknowledgementRequest(context.Background(), KindMedication, res.ReminderKey, false)
	require.NoError(t, err)
	updated := await(t, f)

	assert.Equal(t, "2024-05-02 08:00", updated.DateTime())
	assert.NotEqual(t, res.Reminder.DateTime(), updated.DateTime())

	log := ackLog(t, r, res.MedicationKey)
	require.Len(t, log, 1)
	assert.Equal(t, model.AckAcknowledged, log[0].Status)
	assert.Equal(t, "2024-05-01 08:00", log[0].Occurrence)
	assert.True(t, log[0].RecordedAt.Equal(fixedNow))

	assert.Equal(t, []int64{res.ReminderKey, res.ReminderKey}, trigger.Calls())
}

func TestDismissRecordsDismissedEntry(t *testing.T) {
	r, _ := setupTestRouter(t)
	res := addMedication(t, r, "Aspirin")

	f, err := r.ProcessAcknowledgementRequest(context.Background(), KindMedication, res.ReminderKey, false)
	require.NoError(t, err)
	await(t, f)

	f, err = r.ProcessAcknowledgementRequest(context.Background(), KindMedication, res.ReminderKey, true)
	require.NoError(t, err)
	updated := await(t, f)
	assert.Equal(t, "2024-05-03 08:00", updated.DateTime())

	log := ackLog(t, r, res.MedicationKey)
	require.Len(t, log, 2)
	assert.Equal(t, model.AckAcknowledged, log[0].Status)
	assert.Equal(t, model.AckDismissed, log[1].Status)
	assert.Equal(t, "2024-05-02 08:00", log[1].Occurrence)
}

func TestAcknowledgementsInFlightEachAdvance(t *testing.T) {
	r, _ := setupTestRouter(t)
	res := addMedication(t, r, "Aspirin")

	first, err := r.ProcessAcknowledgementRequest(context.Background(), KindMedication, res.ReminderKey, false)
	require.NoError(t, err)
	second, err := r.ProcessAcknowledgementRequest(context.Background(), KindMedication, res.ReminderKey, true)
	require.NoError(t, err)
	await(t, first)
	await(t, second)

	rem, ok, err := r.Repository().GetReminder(res.ReminderKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2024-05-03 08:00", rem.DateTime())

	log := ackLog(t, r, res.MedicationKey)
	require.Len(t, log, 2)
	occurrences := []string{log[0].Occurrence, log[1].Occurrence}
	assert.ElementsMatch(t, []string{"2024-05-01 08:00", "2024-05-02 08:00"}, occurrences)
}

func TestAcknowledgeInvalid(t *testing.T) {
	r, trigger := setupTestRouter(t)

	_, err := r.ProcessAcknowledgementRequest(context.Background(), KindMedication, 0, false)
	assert.ErrorIs(t, err, errors.ErrInvalidField)

	_, err = r.ProcessAcknowledgementRequest(context.Background(), KindMedication, 404, false)
	assert.ErrorIs(t, err, errors.ErrReminderNotFound)

	_, err = r.ProcessAcknowledgementRequest(context.Background(), KindAppointment, 1, false)
	assert.ErrorIs(t, err, errors.ErrUnsupportedKind)

	_, err = r.ProcessAcknowledgementRequest(context.Background(), Kind(7), 1, true)
	assert.ErrorIs(t, err, errors.ErrUnknownKind)

	appt := &model.Reminder{Classification: model.ClassAppointment, Date: "2024-05-01", Time: "10:00"}
	key := await(t, r.Repository().InsertReminder(appt))
	_, err = r.ProcessAcknowledgementRequest(context.Background(), KindMedication, key, false)
	assert.ErrorIs(t, err, errors.ErrInvalidField)

	assert.Empty(t, trigger.Calls())
}

// =============================================================================
// Clear Tests
// =============================================================================

func TestClearTableRequestMedication(t *testing.T) {
	r, _ := setupTestRouter(t)
	addMedication(t, r, "Aspirin")
	addMedication(t, r, "Ibuprofen")
	await(t, r.Repository().InsertReminder(&model.Reminder{Classification: model.ClassAppointment, Date: "2024-05-01", Time: "10:00"}))

	f, err := r.ClearTableRequest(context.Background(), KindMedication)
	require.NoError(t, err)
	assert.Equal(t, 4, await(t, f))

	assert.Zero(t, medicationCount(r))
	assert.Equal(t, 1, reminderCount(t, r))

	f, err = r.ClearTableRequest(context.Background(), KindAppointment)
	require.NoError(t, err)
	assert.Equal(t, 1, await(t, f))
	assert.Zero(t, reminderCount(t, r))

	_, err = r.ClearTableRequest(context.Background(), KindDoctor)
	assert.ErrorIs(t, err, errors.ErrUnsupportedKind)
}

func TestProcessReminderDeleteRequest(t *testing.T) {
	r, trigger := setupTestRouter(t)
	res := addMedication(t, r, "Aspirin")

	f, err := r.ProcessReminderDeleteRequest(context.Background(), res.ReminderKey)
	require.NoError(t, err)
	assert.True(t, await(t, f))
	assert.Zero(t, reminderCount(t, r))
	assert.Equal(t, []int64{res.ReminderKey}, trigger.Cancelled())

	f, err = r.ProcessReminderDeleteRequest(context.Background(), res.ReminderKey)
	require.NoError(t, err)
	assert.False(t, await(t, f))

	_, err = r.ProcessReminderDeleteRequest(context.Background(), 0)
	assert.ErrorIs(t, err, errors.ErrInvalidField)
}

func TestClearRemindersRequest(t *testing.T) {
	r, trigger := setupTestRouter(t)
	res := addMedication(t, r, "Aspirin")
	apptKey := await(t, r.Repository().InsertReminder(&model.Reminder{Classification: model.ClassAppointment, Date: "2024-05-01", Time: "10:00"}))

	f, err := r.ClearRemindersRequest(context.Background(), KindAppointment)
	require.NoError(t, err)
	assert.Equal(t, 1, await(t, f))
	assert.Equal(t, []int64{apptKey}, trigger.Cancelled())

	rems, err := r.Repository().ListReminders()
	require.NoError(t, err)
	require.Len(t, rems, 1)
	assert.Equal(t, res.ReminderKey, rems[0].PrimaryKey)

	f, err = r.ClearRemindersRequest(context.Background(), KindMedication)
	require.NoError(t, err)
	assert.Equal(t, 1, await(t, f))
	assert.Zero(t, reminderCount(t, r))
	assert.Equal(t, 1, medicationCount(r))
	assert.Equal(t, []int64{apptKey, res.ReminderKey}, trigger.Cancelled())

	_, err = r.ClearRemindersRequest(context.Background(), KindDoctor)
	assert.ErrorIs(t, err, errors.ErrUnsupportedKind)
	_, err = r.ClearRemindersRequest(context.Background(), Kind(9))
	assert.ErrorIs(t, err, errors.ErrUnknownKind)
}

func TestClearAllRemindersRequest(t *testing.T) {
	r, trigger := setupTestRouter(t)
	aspirin := addMedication(t, r, "Aspirin")
	ibuprofen := addMedication(t, r, "Ibuprofen")

	f, err := r.ClearAllRemindersRequest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, await(t, f))
	assert.Zero(t, reminderCount(t, r))
	assert.Equal(t, 2, medicationCount(r))
	assert.ElementsMatch(t, []int64{aspirin.ReminderKey, ibuprofen.ReminderKey}, trigger.Cancelled())
}

func TestClearAllTables(t *testing.T) {
	r, _ := setupTestRouter(t)
	addMedication(t, r, "Aspirin")
	await(t, r.Repository().InsertReminder(&model.Reminder{Classification: model.ClassAppointment, Date: "2024-05-01", Time: "10:00"}))

	assert.Equal(t, 3, await(t, r.ClearAllTables(context.Background())))
	assert.Zero(t, medicationCount(r))
	assert.Empty(t, r.Repository().GetAllMedications().Snapshot())
	assert.Zero(t, reminderCount(t, r))
}
