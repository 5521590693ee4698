package repository

import (
	"fmt"
	"time"

	"github.com/manav03panchal/medtrack/internal/errors"
	"github.com/manav03panchal/medtrack/internal/logging"
	"github.com/manav03panchal/medtrack/internal/model"
	"github.com/manav03panchal/medtrack/internal/storage"
)

// =============================================================================
// Inserts
// =============================================================================

// InsertMedication assigns a primary key and writes the medication.
// med.PrimaryKey is set before the future resolves; do not read it earlier.
func (r *Repository) InsertMedication(med *model.Medication) *Future[int64] {
	if err := r.checkNewMedication(med); err != nil {
		return rejected[int64](err)
	}
	return submit(r, "insert medication", func() (int64, error) {
		return r.insertMedication(med)
	})
}

// CheckMedication reports the InvalidRequestError InsertMedication would
// reject med with, without submitting anything.
func (r *Repository) CheckMedication(med *model.Medication) error {
	return r.checkNewMedication(med)
}

func (r *Repository) checkNewMedication(med *model.Medication) error {
	if med == nil {
		return errors.NewInvalidRequest("medication is required", errors.ErrMissingField)
	}
	if med.IsPersisted() {
		return errors.NewInvalidField("primary_key", fmt.Sprint(med.PrimaryKey),
			"medication already persisted", errors.ErrAlreadyPersisted)
	}
	return r.validateStruct(med)
}

func (r *Repository) insertMedication(med *model.Medication) (int64, error) {
	const op = "insert medication"

	pk, err := r.meds.NextKey()
	if err != nil {
		return model.UnsetKey, errors.NewPersistenceError(op, "failed to allocate key", err)
	}

	row := *med
	row.PrimaryKey = pk

	unlockTable := r.tables.share(tableMedication)
	defer unlockTable()
	unlock := r.rows.lock(medicationRow(pk))
	defer unlock()

	if err := r.update(op, func(tx *storage.Tx) error {
		return r.meds.Insert(tx, &row)
	}); err != nil {
		return model.UnsetKey, err
	}

	med.PrimaryKey = pk
	r.live.refresh()
	logging.Info("medication inserted", logging.KeyMedicationID, pk, logging.KeyName, med.Name)
	return pk, nil
}

// InsertReminder assigns a primary key and writes the reminder.
// rem.PrimaryKey is set before the future resolves; do not read it earlier.
func (r *Repository) InsertReminder(rem *model.Reminder) *Future[int64] {
	if err := checkNewReminder(rem); err != nil {
		return rejected[int64](err)
	}
	return submit(r, "insert reminder", func() (int64, error) {
		return r.insertReminder(rem)
	})
}

func checkNewReminder(rem *model.Reminder) error {
	if rem == nil {
		return errors.NewInvalidRequest("reminder is required", errors.ErrMissingField)
	}
	if rem.PrimaryKey != model.UnsetKey {
		return errors.NewInvalidField("primary_key", fmt.Sprint(rem.PrimaryKey),
			"reminder already persisted", errors.ErrAlreadyPersisted)
	}
	if !rem.Classification.IsValid() {
		return errors.NewInvalidField("classification", string(rem.Classification),
			"invalid classification", errors.ErrInvalidField)
	}
	return validateSchedule(rem.Date, rem.Time, rem.IntervalIndex)
}

func (r *Repository) insertReminder(rem *model.Reminder) (int64, error) {
	const op = "insert reminder"

	pk, err := r.rems.NextKey()
	if err != nil {
		return model.UnsetKey, errors.NewPersistenceError(op, "failed to allocate key", err)
	}

	row := *rem
	row.PrimaryKey = pk

	unlockTable := r.tables.share(tableReminder)
	defer unlockTable()
	unlock := r.rows.lock(reminderRow(pk))
	defer unlock()

	if err := r.update(op, func(tx *storage.Tx) error {
		return r.rems.Save(tx, &row)
	}); err != nil {
		return model.UnsetKey, err
	}

	rem.PrimaryKey = pk
	logging.Info("reminder inserted", logging.KeyReminderID, pk, logging.KeyMedicationID, rem.OwnerKey)
	return pk, nil
}

// InsertMedicationAndReminder inserts the medication, derives a daily
// reminder from its first date, inserts that and links it back. The steps
// run in order on one worker. A failure after the medication is saved
// resolves with a *PartialInsertError; nothing is rolled back.
func (r *Repository) InsertMedicationAndReminder(med *model.Medication) *Future[*MedicationInsert] {
	if err := r.checkNewMedication(med); err != nil {
		return rejected[*MedicationInsert](err)
	}
	date, clock, err := model.SplitDateTime(med.FirstDate)
	if err != nil {
		return rejected[*MedicationInsert](errors.NewInvalidField("first-date", med.FirstDate,
			"invalid first date", errors.ErrInvalidDateTime))
	}

	return submit(r, "insert medication and reminder", func() (*MedicationInsert, error) {
		medKey, err := r.insertMedication(med)
		if err != nil {
			return nil, err
		}

		rem := model.NewMedicationReminder(medKey, date, clock)
		remKey, err := r.insertReminder(rem)
		if err != nil {
			return nil, &PartialInsertError{Step: StepInsertReminder, MedicationKey: medKey, Cause: err}
		}

		if _, err := r.addReminderID(medKey, remKey); err != nil {
			return nil, &PartialInsertError{
				Step:          StepLinkReminder,
				MedicationKey: medKey,
				ReminderKey:   remKey,
				Cause:         err,
			}
		}
		med.AddReminderID(remKey)

		return &MedicationInsert{MedicationKey: medKey, ReminderKey: remKey, Reminder: rem}, nil
	})
}

// =============================================================================
// Updates
// =============================================================================

// UpdateAcknowledgements overwrites a medication's acknowledgement log.
func (r *Repository) UpdateAcknowledgements(medKey int64, serialized string) *Future[struct{}] {
	if _, err := model.ParseAcknowledgementLog(serialized); err != nil {
		return rejected[struct{}](errors.NewInvalidField("acknowledgements", "",
			"invalid acknowledgement log", errors.ErrInvalidField))
	}
	return submit(r, "update acknowledgements", func() (struct{}, error) {
		err := r.mutateMedication("update acknowledgements", medKey, func(med *model.Medication) bool {
			med.AcknowledgementList = serialized
			return true
		})
		return struct{}{}, err
	})
}

// AddReminderID links a reminder to a medication. Linking twice is a no-op;
// the future resolves to false in that case.
func (r *Repository) AddReminderID(medKey, reminderKey int64) *Future[bool] {
	return submit(r, "add reminder id", func() (bool, error) {
		return r.addReminderID(medKey, reminderKey)
	})
}

func (r *Repository) addReminderID(medKey, reminderKey int64) (bool, error) {
	var added bool
	err := r.mutateMedication("add reminder id", medKey, func(med *model.Medication) bool {
		added = med.AddReminderID(reminderKey)
		return added
	})
	return added, err
}

// mutateMedication applies fn to one medication row under its row lock.
// fn returns false when nothing needs writing.
func (r *Repository) mutateMedication(op string, medKey int64, fn func(*model.Medication) bool) error {
	unlockTable := r.tables.share(tableMedication)
	defer unlockTable()
	unlock := r.rows.lock(medicationRow(medKey))
	defer unlock()

	err := r.update(op, func(tx *storage.Tx) error {
		med, err := r.meds.Load(tx, medKey)
		if storage.IsErrKeyNotFound(err) {
			return errors.NewInvalidField("medication", fmt.Sprint(medKey), "medication not found", errors.ErrMedicationNotFound)
		}
		if err != nil {
			return err
		}
		if !fn(med) {
			return nil
		}
		return r.meds.Update(tx, med)
	})
	if err != nil {
		return err
	}
	r.live.refresh()
	return nil
}

// UpdateDateAndTime overwrites a reminder's recurrence fields in one write.
func (r *Repository) UpdateDateAndTime(reminderKey int64, date, clock string, intervalIndex int) *Future[*model.Reminder] {
	if err := validateSchedule(date, clock, intervalIndex); err != nil {
		return rejected[*model.Reminder](err)
	}
	return submit(r, "update date and time", func() (*model.Reminder, error) {
		const op = "update date and time"

		unlockTable := r.tables.share(tableReminder)
		defer unlockTable()
		unlock := r.rows.lock(reminderRow(reminderKey))
		defer unlock()

		var updated *model.Reminder
		err := r.update(op, func(tx *storage.Tx) error {
			rem, err := r.loadReminder(tx, reminderKey)
			if err != nil {
				return err
			}
			rem.Date, rem.Time, rem.IntervalIndex = date, clock, intervalIndex
			updated = rem
			return r.rems.Save(tx, rem)
		})
		if err != nil {
			return nil, err
		}
		return updated, nil
	})
}

func (r *Repository) loadReminder(tx *storage.Tx, reminderKey int64) (*model.Reminder, error) {
	rem, err := r.rems.Load(tx, reminderKey)
	if storage.IsErrKeyNotFound(err) {
		return nil, errors.NewInvalidField("reminder", fmt.Sprint(reminderKey), "reminder not found", errors.ErrReminderNotFound)
	}
	return rem, err
}

// AcknowledgeReminder moves a reminder to the occurrence after its pending
// one and appends an acknowledged or dismissed entry for the pending one to
// the owning medication's log. Both are computed from the row read under the
// lock and written in a single transaction, so concurrent acknowledgements
// each consume a distinct occurrence.
func (r *Repository) AcknowledgeReminder(reminderKey int64, dismissed bool, now time.Time) *Future[*model.Reminder] {
	return submit(r, "acknowledge reminder", func() (*model.Reminder, error) {
		const op = "acknowledge reminder"

		// The owner never changes, so it is safe to read it before locking.
		current, ok, err := r.GetReminder(reminderKey)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.NewInvalidField("reminder", fmt.Sprint(reminderKey), "reminder not found", errors.ErrReminderNotFound)
		}
		hasOwner := current.Classification == model.ClassMedication && current.OwnerKey != model.UnsetKey

		keys := []string{reminderRow(reminderKey)}
		if hasOwner {
			keys = append(keys, medicationRow(current.OwnerKey))
		}
		unlockTables := r.tables.share(tableMedication, tableReminder)
		defer unlockTables()
		unlock := r.rows.lock(keys...)
		defer unlock()

		var updated *model.Reminder
		var entry model.Acknowledgement
		var logged bool
		err = r.update(op, func(tx *storage.Tx) error {
			logged = false
			rem, err := r.loadReminder(tx, reminderKey)
			if err != nil {
				return err
			}
			next, err := rem.Next(now)
			if err != nil {
				return errors.NewInvalidRequest(err.Error(), errors.ErrInvalidDateTime)
			}
			entry = model.NewAcknowledgement(rem, dismissed, now)
			rem.Date, rem.Time = model.FormatOccurrence(next)
			if err := r.rems.Save(tx, rem); err != nil {
				return err
			}
			updated = rem

			if !hasOwner {
				return nil
			}
			med, err := r.meds.Load(tx, rem.OwnerKey)
			if storage.IsErrKeyNotFound(err) {
				return nil
			}
			if err != nil {
				return err
			}
			med.AcknowledgementList, err = model.AppendAcknowledgement(med.AcknowledgementList, entry)
			if err != nil {
				return err
			}
			logged = true
			return r.meds.Update(tx, med)
		})
		if err != nil {
			return nil, err
		}

		if logged {
			r.live.refresh()
		} else if hasOwner {
			logging.Warn("acknowledged reminder has no medication",
				logging.KeyReminderID, reminderKey, logging.KeyMedicationID, current.OwnerKey)
		}
		logging.Info("reminder acknowledged", logging.KeyReminderID, reminderKey,
			logging.KeyStatus, string(entry.Status), logging.KeyDueAt, updated.DateTime())
		return updated, nil
	})
}

// =============================================================================
// Single-row deletes
// =============================================================================

// DeleteMedication removes the medication row. Its reminders are kept.
// The future resolves to whether a row was removed.
func (r *Repository) DeleteMedication(med *model.Medication) *Future[bool] {
	if med == nil || !med.IsPersisted() {
		return Resolved(false, nil)
	}
	pk := med.PrimaryKey
	return submit(r, "delete medication", func() (bool, error) {
		return r.deleteMedication(pk)
	})
}

// DeleteMedicationByName removes the medication with the given name.
func (r *Repository) DeleteMedicationByName(name string) *Future[bool] {
	return submit(r, "delete medication by name", func() (bool, error) {
		med, ok, err := r.GetMedicationByName(name)
		if err != nil || !ok {
			return false, err
		}
		return r.deleteMedication(med.PrimaryKey)
	})
}

func (r *Repository) deleteMedication(pk int64) (bool, error) {
	unlockTable := r.tables.share(tableMedication)
	defer unlockTable()
	unlock := r.rows.lock(medicationRow(pk))
	defer unlock()

	var removed *model.Medication
	err := r.update("delete medication", func(tx *storage.Tx) error {
		var err error
		removed, err = r.meds.Delete(tx, pk)
		return err
	})
	if err != nil {
		return false, err
	}
	if removed == nil {
		return false, nil
	}

	r.live.refresh()
	logging.Info("medication deleted", logging.KeyMedicationID, pk, logging.KeyName, removed.Name)
	return true, nil
}

// DeleteReminder removes the reminder row.
func (r *Repository) DeleteReminder(rem *model.Reminder) *Future[bool] {
	if rem == nil || rem.PrimaryKey == model.UnsetKey {
		return Resolved(false, nil)
	}
	return r.DeleteReminderByID(rem.PrimaryKey)
}

// DeleteReminderByID removes the reminder with the given primary key.
func (r *Repository) DeleteReminderByID(pk int64) *Future[bool] {
	return submit(r, "delete reminder", func() (bool, error) {
		unlockTable := r.tables.share(tableReminder)
		defer unlockTable()
		unlock := r.rows.lock(reminderRow(pk))
		defer unlock()

		var existed bool
		err := r.update("delete reminder", func(tx *storage.Tx) error {
			var err error
			existed, err = r.rems.Delete(tx, pk)
			return err
		})
		if err == nil && existed {
			logging.Info("reminder deleted", logging.KeyReminderID, pk)
		}
		return existed, err
	})
}

// =============================================================================
// Bulk deletes
// =============================================================================

// ClearAllMedications removes every medication. Resolves to the count removed.
func (r *Repository) ClearAllMedications() *Future[int] {
	return submit(r, "clear medications", func() (int, error) {
		unlock := r.tables.exclusive(tableMedication)
		defer unlock()

		n, err := r.meds.DeleteAll()
		r.live.refresh()
		if err != nil {
			return n, errors.NewPersistenceError("clear medications", "bulk delete failed", err)
		}
		logging.Info("medications cleared", logging.KeyCount, n)
		return n, nil
	})
}

// ClearAllReminders removes every reminder.
func (r *Repository) ClearAllReminders() *Future[int] {
	return r.deleteReminders("clear reminders", func(*model.Reminder) bool { return true })
}

// DeleteAllMedicationReminders removes reminders classified as medication reminders.
func (r *Repository) DeleteAllMedicationReminders() *Future[int] {
	return r.deleteReminders("delete medication reminders", func(rem *model.Reminder) bool {
		return rem.Classification == model.ClassMedication
	})
}

// DeleteAllAppointmentReminders removes reminders classified as appointment reminders.
func (r *Repository) DeleteAllAppointmentReminders() *Future[int] {
	return r.deleteReminders("delete appointment reminders", func(rem *model.Reminder) bool {
		return rem.Classification == model.ClassAppointment
	})
}

func (r *Repository) deleteReminders(op string, match func(*model.Reminder) bool) *Future[int] {
	return submit(r, op, func() (int, error) {
		unlock := r.tables.exclusive(tableReminder)
		defer unlock()

		n, err := r.rems.DeleteWhere(match)
		if err != nil {
			return n, errors.NewPersistenceError(op, "bulk delete failed", err)
		}
		logging.Info("reminders deleted", logging.KeyOperation, op, logging.KeyCount, n)
		return n, nil
	})
}
