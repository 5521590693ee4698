package storage

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/manav03panchal/medtrack/internal/errors"
	"github.com/manav03panchal/medtrack/internal/logging"
	"github.com/manav03panchal/medtrack/internal/model"
)

// maxReportedIssues caps RecoveryStatus.Errors.
const maxReportedIssues = 50

// RecoveryStatus represents the result of a database health check.
type RecoveryStatus struct {
	Healthy     bool      `json:"healthy"`
	Corrupted   bool      `json:"corrupted"`
	LastCheck   time.Time `json:"last_check"`
	Medications int       `json:"medications"`
	Reminders   int       `json:"reminders"`
	ErrorCount  int       `json:"error_count"`
	Errors      []string  `json:"errors,omitempty"`
	BackupPath  string    `json:"backup_path,omitempty"`
}

func (s *RecoveryStatus) addIssue(format string, args ...any) {
	s.ErrorCount++
	if len(s.Errors) < maxReportedIssues {
		s.Errors = append(s.Errors, fmt.Sprintf(format, args...))
	}
}

// CheckDatabaseIntegrity decodes every record and cross-checks references:
// name index entries, reminder owners and medication reminder lists.
func CheckDatabaseIntegrity(db *DB) *RecoveryStatus {
	status := &RecoveryStatus{
		LastCheck: time.Now(),
		Healthy:   true,
	}

	if db == nil || db.db == nil {
		status.Healthy = false
		status.Corrupted = true
		status.addIssue("database not initialized")
		return status
	}

	meds := make(map[int64]*model.Medication)
	reminders := make(map[int64]*model.Reminder)
	names := make(map[string]int64)

	err := db.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.KeyCopy(nil))

			err := item.Value(func(val []byte) error {
				switch {
				case strings.HasPrefix(key, model.PrefixMedicationName+":"):
					var pk int64
					if err := json.Unmarshal(val, &pk); err != nil {
						return err
					}
					names[strings.TrimPrefix(key, model.PrefixMedicationName+":")] = pk
				case strings.HasPrefix(key, model.PrefixMedication+":"):
					m := &model.Medication{}
					if err := json.Unmarshal(val, m); err != nil {
						return err
					}
					m.SetKey(key)
					meds[m.PrimaryKey] = m
				case strings.HasPrefix(key, model.PrefixReminder+":"):
					r := &model.Reminder{}
					if err := json.Unmarshal(val, r); err != nil {
						return err
					}
					r.SetKey(key)
					reminders[r.PrimaryKey] = r
				}
				return nil
			})
			if err != nil {
				status.addIssue("unreadable value at key %s: %v", key, err)
			}
		}
		return nil
	})
	if err != nil {
		status.addIssue("iteration error: %v", err)
	}

	status.Medications = len(meds)
	status.Reminders = len(reminders)

	for name, pk := range names {
		m, ok := meds[pk]
		if !ok {
			status.addIssue("name index %q points to missing medication %d", name, pk)
		} else if m.Name != name {
			status.addIssue("name index %q points to medication %d named %q", name, pk, m.Name)
		}
	}
	for pk, m := range meds {
		if names[m.Name] != pk {
			status.addIssue("medication %d is missing from the name index", pk)
		}
		if _, err := model.ParseAcknowledgementLog(m.AcknowledgementList); err != nil {
			status.addIssue("medication %d has an unreadable acknowledgement log: %v", pk, err)
		}
		for _, rk := range m.ReminderIDs {
			if _, ok := reminders[rk]; !ok {
				status.addIssue("medication %d references missing reminder %d", pk, rk)
			}
		}
	}
	for pk, r := range reminders {
		if r.Classification == model.ClassMedication && r.OwnerKey != model.UnsetKey {
			if _, ok := meds[r.OwnerKey]; !ok {
				status.addIssue("reminder %d belongs to missing medication %d", pk, r.OwnerKey)
			}
		}
		if _, err := r.Occurrence(); err != nil {
			status.addIssue("reminder %d has an invalid date/time: %v", pk, err)
		}
	}

	if status.ErrorCount > 0 {
		status.Healthy = false
		status.Corrupted = true
	}
	return status
}

// CreateBackup writes a full badger backup next to the database directory.
// Returns the path to the backup file.
func CreateBackup(db *DB) (string, error) {
	if db == nil || db.InMemory() {
		return "", fmt.Errorf("in-memory databases cannot be backed up")
	}

	backupDir := filepath.Join(filepath.Dir(db.Path()), "backups")
	if err := EnsureDirectory(backupDir); err != nil {
		return "", err
	}

	timestamp := time.Now().Format("20060102-150405")
	backupPath := filepath.Join(backupDir, fmt.Sprintf("db-backup-%s.bak", timestamp))

	f, err := os.OpenFile(backupPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return "", fmt.Errorf("failed to create backup file: %w", err)
	}

	if _, err := db.db.Backup(f, 0); err != nil {
		f.Close()
		os.Remove(backupPath)
		if isDiskFullError(err) {
			return "", errors.NewPersistenceError("backup", "disk full", errors.ErrDiskFull)
		}
		return "", fmt.Errorf("failed to write backup: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to sync backup: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close backup: %w", err)
	}

	logging.Info("database backup created", logging.KeyOperation, "backup", "path", backupPath)
	return backupPath, nil
}

// RestoreBackup loads a backup produced by CreateBackup into db.
func RestoreBackup(db *DB, backupPath string) error {
	f, err := os.Open(backupPath)
	if err != nil {
		return fmt.Errorf("failed to open backup: %w", err)
	}
	defer f.Close()

	if err := db.db.Load(f, 256); err != nil {
		return errors.NewPersistenceError("restore", "failed to load backup", err)
	}
	return nil
}

var corruptionPatterns = []string{
	"checksum mismatch",
	"corrupt",
	"unexpected eof",
	"bad magic",
	"truncated",
}

// IsDatabaseCorrupted checks if the given error indicates database corruption.
func IsDatabaseCorrupted(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, errors.ErrDatabaseCorrupted) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range corruptionPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
