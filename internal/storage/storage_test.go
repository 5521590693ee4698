package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/manav03panchal/medtrack/internal/errors"
	"github.com/manav03panchal/medtrack/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper to create an in-memory database for testing
func setupTestDB(t *testing.T) *DB {
	db, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func insertMedication(t *testing.T, db *DB, name string) *model.Medication {
	repo := NewMedicationRepo(db)
	pk, err := repo.NextKey()
	require.NoError(t, err)

	med := model.NewMedication(name, "10mg", "2024-05-01 08:00")
	med.PrimaryKey = pk
	require.NoError(t, db.Update(func(tx *Tx) error {
		return repo.Insert(tx, med)
	}))
	return med
}

func saveReminder(t *testing.T, db *DB, rem *model.Reminder) *model.Reminder {
	repo := NewReminderRepo(db)
	pk, err := repo.NextKey()
	require.NoError(t, err)

	rem.PrimaryKey = pk
	require.NoError(t, db.Update(func(tx *Tx) error {
		return repo.Save(tx, rem)
	}))
	return rem
}

// =============================================================================
// DB Tests
// =============================================================================

func TestOpenClose(t *testing.T) {
	t.Run("in_memory", func(t *testing.T) {
		db, err := Open(Options{InMemory: true})
		require.NoError(t, err)
		assert.True(t, db.InMemory())
		assert.Equal(t, "", db.Path())
		assert.NotNil(t, db.Badger())
		assert.NoError(t, db.Close())
	})

	t.Run("empty_path_uses_in_memory", func(t *testing.T) {
		db, err := Open(Options{Path: ""})
		require.NoError(t, err)
		assert.True(t, db.InMemory())
		db.Close()
	})

	t.Run("memory_path_uses_in_memory", func(t *testing.T) {
		db, err := Open(Options{Path: ":memory:"})
		require.NoError(t, err)
		assert.True(t, db.InMemory())
		db.Close()
	})

	t.Run("on_disk_with_gc", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "db")
		db, err := Open(Options{Path: dbPath, GCInterval: 50 * time.Millisecond})
		require.NoError(t, err)
		assert.Equal(t, dbPath, db.Path())
		assert.NoError(t, db.Close())
	})
}

func TestDefaultPath(t *testing.T) {
	path := DefaultPath()
	assert.Contains(t, path, "medtrack")
	assert.Contains(t, path, "db")
}

func TestNextKey(t *testing.T) {
	db := setupTestDB(t)

	first, err := db.NextKey(model.PrefixMedication)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)

	second, err := db.NextKey(model.PrefixMedication)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second)

	// Tables have independent sequences.
	rem, err := db.NextKey(model.PrefixReminder)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rem)
}

func TestNextKeyContinuesAfterReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "db")

	db, err := Open(Options{Path: dbPath})
	require.NoError(t, err)
	var last int64
	for range 5 {
		last, err = db.NextKey(model.PrefixReminder)
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	db, err = Open(Options{Path: dbPath})
	require.NoError(t, err)
	defer db.Close()

	next, err := db.NextKey(model.PrefixReminder)
	require.NoError(t, err)
	assert.Greater(t, next, last)
}

func TestIsErrConflict(t *testing.T) {
	db := setupTestDB(t)
	med := insertMedication(t, db, "Aspirin")

	txn := db.Badger().NewTransaction(true)
	defer txn.Discard()
	_, err := txn.Get([]byte(med.GetKey()))
	require.NoError(t, err)

	require.NoError(t, db.Set(med))

	require.NoError(t, txn.Set([]byte(med.GetKey()), []byte("{}")))
	err = txn.Commit()
	assert.True(t, IsErrConflict(err))
	assert.False(t, IsErrConflict(fmt.Errorf("other")))
}

func TestDeleteKeysAcrossBatches(t *testing.T) {
	db := setupTestDB(t)

	keys := make([]string, deleteBatchSize+250)
	for i := range keys {
		rem := &model.Reminder{PrimaryKey: int64(i + 1)}
		keys[i] = rem.GetKey()
		require.NoError(t, db.Set(rem))
	}

	n, err := db.DeleteKeys(keys)
	require.NoError(t, err)
	assert.Equal(t, len(keys), n)

	left, err := db.ListByPrefix(model.PrefixReminder + ":")
	require.NoError(t, err)
	assert.Empty(t, left)
}

// =============================================================================
// MedicationRepo Tests
// =============================================================================

func TestMedicationRepoInsertAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMedicationRepo(db)
	med := insertMedication(t, db, "Aspirin")

	got, err := repo.Get(med.PrimaryKey)
	require.NoError(t, err)
	assert.Equal(t, "Aspirin", got.Name)
	assert.Equal(t, med.PrimaryKey, got.PrimaryKey)

	byName, err := repo.GetByName("Aspirin")
	require.NoError(t, err)
	assert.Equal(t, med.PrimaryKey, byName.PrimaryKey)
}

func TestMedicationRepoGetNotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMedicationRepo(db)

	_, err := repo.Get(42)
	assert.True(t, IsErrKeyNotFound(err))

	_, err = repo.GetByName("missing")
	assert.True(t, IsErrKeyNotFound(err))
}

func TestMedicationRepoDuplicateName(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMedicationRepo(db)
	insertMedication(t, db, "Aspirin")

	dup := model.NewMedication("Aspirin", "20mg", "2024-05-02 08:00")
	dup.PrimaryKey = 99
	err := db.Update(func(tx *Tx) error {
		return repo.Insert(tx, dup)
	})
	assert.ErrorIs(t, err, errors.ErrDuplicateName)
	assert.True(t, errors.IsInvalidRequest(err))

	_, err = repo.Get(99)
	assert.True(t, IsErrKeyNotFound(err))
}

func TestMedicationRepoListOrdered(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMedicationRepo(db)

	for i := range 12 {
		insertMedication(t, db, fmt.Sprintf("med-%d", i))
	}

	meds, err := repo.List()
	require.NoError(t, err)
	require.Len(t, meds, 12)
	for i := 1; i < len(meds); i++ {
		assert.Less(t, meds[i-1].PrimaryKey, meds[i].PrimaryKey)
	}
}

func TestMedicationRepoDelete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMedicationRepo(db)
	med := insertMedication(t, db, "Aspirin")

	var removed *model.Medication
	require.NoError(t, db.Update(func(tx *Tx) error {
		var err error
		removed, err = repo.Delete(tx, med.PrimaryKey)
		return err
	}))
	require.NotNil(t, removed)
	assert.Equal(t, "Aspirin", removed.Name)

	_, err := repo.GetByName("Aspirin")
	assert.True(t, IsErrKeyNotFound(err))

	// The name is free again.
	insertMedication(t, db, "Aspirin")

	require.NoError(t, db.Update(func(tx *Tx) error {
		var err error
		removed, err = repo.Delete(tx, 12345)
		return err
	}))
	assert.Nil(t, removed)
}

func TestMedicationRepoDeleteAll(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMedicationRepo(db)
	insertMedication(t, db, "Aspirin")
	insertMedication(t, db, "Ibuprofen")

	n, err := repo.DeleteAll()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	meds, err := repo.List()
	require.NoError(t, err)
	assert.Empty(t, meds)

	index, err := db.ListByPrefix(model.PrefixMedicationName + ":")
	require.NoError(t, err)
	assert.Empty(t, index)
}

// =============================================================================
// ReminderRepo Tests
// =============================================================================

func TestReminderRepoSaveAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReminderRepo(db)
	rem := saveReminder(t, db, model.NewMedicationReminder(1, "2024-05-01", "08:00"))

	got, err := repo.Get(rem.PrimaryKey)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01 08:00", got.DateTime())
	assert.Equal(t, model.ClassMedication, got.Classification)

	_, err = repo.Get(999)
	assert.True(t, IsErrKeyNotFound(err))
}

func TestReminderRepoFilters(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReminderRepo(db)

	saveReminder(t, db, model.NewMedicationReminder(1, "2024-05-01", "08:00"))
	saveReminder(t, db, model.NewMedicationReminder(2, "2024-05-01", "09:00"))
	saveReminder(t, db, &model.Reminder{Classification: model.ClassAppointment, Date: "2024-05-03", Time: "10:00"})

	meds, err := repo.ListByClassification(model.ClassMedication)
	require.NoError(t, err)
	assert.Len(t, meds, 2)

	owned, err := repo.ListByOwner(2)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, "09:00", owned[0].Time)
}

func TestReminderRepoDelete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReminderRepo(db)
	rem := saveReminder(t, db, model.NewMedicationReminder(1, "2024-05-01", "08:00"))

	var existed bool
	require.NoError(t, db.Update(func(tx *Tx) error {
		var err error
		existed, err = repo.Delete(tx, rem.PrimaryKey)
		return err
	}))
	assert.True(t, existed)

	require.NoError(t, db.Update(func(tx *Tx) error {
		var err error
		existed, err = repo.Delete(tx, rem.PrimaryKey)
		return err
	}))
	assert.False(t, existed)
}

func TestReminderRepoDeleteWhere(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReminderRepo(db)

	saveReminder(t, db, model.NewMedicationReminder(1, "2024-05-01", "08:00"))
	saveReminder(t, db, &model.Reminder{Classification: model.ClassAppointment, Date: "2024-05-03", Time: "10:00"})
	saveReminder(t, db, &model.Reminder{Classification: model.ClassAppointment, Date: "2024-05-04", Time: "10:00"})

	n, err := repo.DeleteWhere(func(r *model.Reminder) bool {
		return r.Classification == model.ClassAppointment
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := repo.List()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, model.ClassMedication, all[0].Classification)
}

// =============================================================================
// Safety Tests
// =============================================================================

func TestDiskSpaceInfo(t *testing.T) {
	t.Run("free_percent_zero_total", func(t *testing.T) {
		info := &DiskSpaceInfo{TotalBytes: 0, FreeBytes: 100}
		assert.Equal(t, 0.0, info.FreePercent())
	})

	t.Run("free_percent_calculation", func(t *testing.T) {
		info := &DiskSpaceInfo{TotalBytes: 1000, FreeBytes: 250}
		assert.Equal(t, 25.0, info.FreePercent())
	})
}

func TestGetDiskSpace(t *testing.T) {
	t.Run("current_directory", func(t *testing.T) {
		info, err := GetDiskSpace(".")
		require.NoError(t, err)
		assert.Greater(t, info.TotalBytes, uint64(0))
	})

	t.Run("nonexistent_uses_parent", func(t *testing.T) {
		info, err := GetDiskSpace(filepath.Join(t.TempDir(), "missing", "db"))
		require.NoError(t, err)
		assert.NotNil(t, info)
	})
}

func TestCheckDiskSpace(t *testing.T) {
	t.Run("zero_minimum_always_passes", func(t *testing.T) {
		assert.NoError(t, CheckDiskSpace(".", 0))
	})

	t.Run("small_minimum_passes", func(t *testing.T) {
		assert.NoError(t, CheckDiskSpace(".", 1))
	})

	t.Run("impossible_minimum_fails", func(t *testing.T) {
		err := CheckDiskSpace(".", ^uint64(0))
		assert.ErrorIs(t, err, errors.ErrDiskFull)
		assert.True(t, errors.IsPersistence(err))
	})
}

func TestCheckDiskSpaceWarning(t *testing.T) {
	assert.Empty(t, CheckDiskSpaceWarning(".", 0))
	assert.Contains(t, CheckDiskSpaceWarning(".", ^uint64(0)), "Low disk space")
}

func TestIsDiskFullError(t *testing.T) {
	assert.False(t, isDiskFullError(nil))
	assert.False(t, isDiskFullError(fmt.Errorf("some error")))
}

func TestEnsureDirectory(t *testing.T) {
	testPath := filepath.Join(t.TempDir(), "subdir", "nested")

	require.NoError(t, EnsureDirectory(testPath))

	info, err := os.Stat(testPath)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

// =============================================================================
// Recovery Tests
// =============================================================================

func TestCheckDatabaseIntegrity(t *testing.T) {
	t.Run("nil_database", func(t *testing.T) {
		status := CheckDatabaseIntegrity(nil)
		assert.False(t, status.Healthy)
		assert.True(t, status.Corrupted)
	})

	t.Run("healthy_database", func(t *testing.T) {
		db := setupTestDB(t)
		med := insertMedication(t, db, "Aspirin")
		rem := saveReminder(t, db, model.NewMedicationReminder(med.PrimaryKey, "2024-05-01", "08:00"))
		med.AddReminderID(rem.PrimaryKey)
		require.NoError(t, db.Set(med))

		status := CheckDatabaseIntegrity(db)
		assert.True(t, status.Healthy, status.Errors)
		assert.Equal(t, 1, status.Medications)
		assert.Equal(t, 1, status.Reminders)
	})

	t.Run("dangling_references", func(t *testing.T) {
		db := setupTestDB(t)
		med := insertMedication(t, db, "Aspirin")
		med.AddReminderID(77)
		require.NoError(t, db.Set(med))
		saveReminder(t, db, model.NewMedicationReminder(500, "2024-05-01", "08:00"))

		status := CheckDatabaseIntegrity(db)
		assert.False(t, status.Healthy)
		assert.Equal(t, 2, status.ErrorCount)
	})

	t.Run("undecodable_value", func(t *testing.T) {
		db := setupTestDB(t)
		require.NoError(t, db.Update(func(tx *Tx) error {
			return tx.txn.Set([]byte(model.GenerateKey(model.PrefixReminder, 1)), []byte("{"))
		}))

		status := CheckDatabaseIntegrity(db)
		assert.True(t, status.Corrupted)
		assert.Equal(t, 1, status.ErrorCount)
	})
}

func TestIsDatabaseCorrupted(t *testing.T) {
	assert.False(t, IsDatabaseCorrupted(nil))
	assert.False(t, IsDatabaseCorrupted(fmt.Errorf("some error")))
	assert.True(t, IsDatabaseCorrupted(fmt.Errorf("Checksum mismatch detected")))
	assert.True(t, IsDatabaseCorrupted(fmt.Errorf("data corrupt")))
	assert.True(t, IsDatabaseCorrupted(errors.ErrDatabaseCorrupted))
}

func TestCreateBackupInMemory(t *testing.T) {
	db := setupTestDB(t)
	_, err := CreateBackup(db)
	assert.Error(t, err)

	_, err = CreateBackup(nil)
	assert.Error(t, err)
}

func TestCreateAndRestoreBackup(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(Options{Path: filepath.Join(dir, "db")})
	require.NoError(t, err)
	insertMedication(t, db, "Aspirin")

	backupPath, err := CreateBackup(db)
	require.NoError(t, err)
	require.NoError(t, db.Close())
	assert.FileExists(t, backupPath)
	assert.Equal(t, filepath.Join(dir, "backups"), filepath.Dir(backupPath))

	restored := setupTestDB(t)
	require.NoError(t, RestoreBackup(restored, backupPath))

	med, err := NewMedicationRepo(restored).GetByName("Aspirin")
	require.NoError(t, err)
	assert.Equal(t, "10mg", med.Dosage)
}
