package storage

import (
	"github.com/manav03panchal/medtrack/internal/model"
)

// ReminderRepo provides operations for Reminder entities.
type ReminderRepo struct {
	db *DB
}

// NewReminderRepo creates a new reminder repository.
func NewReminderRepo(db *DB) *ReminderRepo {
	return &ReminderRepo{db: db}
}

// Get retrieves a reminder by primary key.
func (r *ReminderRepo) Get(pk int64) (*model.Reminder, error) {
	var rem *model.Reminder
	err := r.db.View(func(tx *Tx) error {
		var err error
		rem, err = r.Load(tx, pk)
		return err
	})
	return rem, err
}

// List retrieves all reminders in primary key order.
func (r *ReminderRepo) List() ([]*model.Reminder, error) {
	return GetAllByPrefix(r.db, model.PrefixReminder+":", func() *model.Reminder {
		return &model.Reminder{}
	})
}

// ListByClassification retrieves reminders of one classification.
func (r *ReminderRepo) ListByClassification(c model.Classification) ([]*model.Reminder, error) {
	all, err := r.List()
	if err != nil {
		return nil, err
	}

	var result []*model.Reminder
	for _, rem := range all {
		if rem.Classification == c {
			result = append(result, rem)
		}
	}
	return result, nil
}

// ListByOwner retrieves the reminders belonging to a medication.
func (r *ReminderRepo) ListByOwner(ownerKey int64) ([]*model.Reminder, error) {
	all, err := r.List()
	if err != nil {
		return nil, err
	}

	var result []*model.Reminder
	for _, rem := range all {
		if rem.OwnerKey == ownerKey {
			result = append(result, rem)
		}
	}
	return result, nil
}

// Load reads a reminder inside a transaction.
func (r *ReminderRepo) Load(tx *Tx, pk int64) (*model.Reminder, error) {
	rem := &model.Reminder{}
	if err := tx.Get(model.GenerateKey(model.PrefixReminder, pk), rem); err != nil {
		return nil, err
	}
	return rem, nil
}

// Save writes a reminder row. The primary key must already be assigned.
func (r *ReminderRepo) Save(tx *Tx, rem *model.Reminder) error {
	return tx.Set(rem)
}

// Delete removes a reminder inside a transaction. Returns false if it did not exist.
func (r *ReminderRepo) Delete(tx *Tx, pk int64) (bool, error) {
	key := model.GenerateKey(model.PrefixReminder, pk)
	exists, err := tx.Exists(key)
	if err != nil || !exists {
		return false, err
	}
	return true, tx.Delete(key)
}

// DeleteWhere removes every reminder for which match returns true.
// Returns the number of reminders removed.
func (r *ReminderRepo) DeleteWhere(match func(*model.Reminder) bool) (int, error) {
	all, err := r.List()
	if err != nil {
		return 0, err
	}

	var keys []string
	for _, rem := range all {
		if match(rem) {
			keys = append(keys, rem.GetKey())
		}
	}
	return r.db.DeleteKeys(keys)
}

// NextKey allocates a reminder primary key.
func (r *ReminderRepo) NextKey() (int64, error) {
	return r.db.NextKey(model.PrefixReminder)
}
