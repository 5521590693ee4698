package storage

import (
	"github.com/manav03panchal/medtrack/internal/errors"
	"github.com/manav03panchal/medtrack/internal/model"
)

// MedicationRepo provides operations for Medication entities.
// Each row is stored under medication:<pk> with a medication-name:<name>
// index entry holding the primary key.
type MedicationRepo struct {
	db *DB
}

// NewMedicationRepo creates a new medication repository.
func NewMedicationRepo(db *DB) *MedicationRepo {
	return &MedicationRepo{db: db}
}

// Get retrieves a medication by primary key.
func (r *MedicationRepo) Get(pk int64) (*model.Medication, error) {
	var med *model.Medication
	err := r.db.View(func(tx *Tx) error {
		var err error
		med, err = r.Load(tx, pk)
		return err
	})
	return med, err
}

// GetByName retrieves a medication through the name index.
func (r *MedicationRepo) GetByName(name string) (*model.Medication, error) {
	var med *model.Medication
	err := r.db.View(func(tx *Tx) error {
		var pk int64
		if err := tx.GetJSON(model.NameIndexKey(name), &pk); err != nil {
			return err
		}
		var err error
		med, err = r.Load(tx, pk)
		return err
	})
	return med, err
}

// List retrieves all medications in primary key order.
func (r *MedicationRepo) List() ([]*model.Medication, error) {
	return GetAllByPrefix(r.db, model.PrefixMedication+":", func() *model.Medication {
		return &model.Medication{}
	})
}

// Load reads a medication inside a transaction.
func (r *MedicationRepo) Load(tx *Tx, pk int64) (*model.Medication, error) {
	med := &model.Medication{}
	if err := tx.Get(model.GenerateKey(model.PrefixMedication, pk), med); err != nil {
		return nil, err
	}
	return med, nil
}

// Insert writes a new medication and its name index entry.
// The primary key must already be assigned. A taken name is an invalid request.
func (r *MedicationRepo) Insert(tx *Tx, med *model.Medication) error {
	taken, err := tx.Exists(model.NameIndexKey(med.Name))
	if err != nil {
		return err
	}
	if taken {
		return errors.NewInvalidField("name", med.Name, "medication already exists", errors.ErrDuplicateName)
	}
	if err := tx.Set(med); err != nil {
		return err
	}
	return tx.SetJSON(model.NameIndexKey(med.Name), med.PrimaryKey)
}

// Update overwrites an existing medication row. The name is immutable.
func (r *MedicationRepo) Update(tx *Tx, med *model.Medication) error {
	return tx.Set(med)
}

// Delete removes a medication and its name index entry inside a transaction.
// Returns the removed row, or nil if it did not exist.
func (r *MedicationRepo) Delete(tx *Tx, pk int64) (*model.Medication, error) {
	med, err := r.Load(tx, pk)
	if IsErrKeyNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := tx.Delete(med.GetKey()); err != nil {
		return nil, err
	}
	if err := tx.Delete(model.NameIndexKey(med.Name)); err != nil {
		return nil, err
	}
	return med, nil
}

// DeleteAll removes every medication row and name index entry.
// Returns the number of medications removed.
func (r *MedicationRepo) DeleteAll() (int, error) {
	rows, err := r.db.ListByPrefix(model.PrefixMedication + ":")
	if err != nil {
		return 0, err
	}
	index, err := r.db.ListByPrefix(model.PrefixMedicationName + ":")
	if err != nil {
		return 0, err
	}
	if _, err := r.db.DeleteKeys(index); err != nil {
		return 0, err
	}
	return r.db.DeleteKeys(rows)
}

// NextKey allocates a medication primary key.
func (r *MedicationRepo) NextKey() (int64, error) {
	return r.db.NextKey(model.PrefixMedication)
}
