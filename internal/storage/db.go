// Package storage provides the database layer for medtrack.
package storage

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/manav03panchal/medtrack/internal/config"
	"github.com/manav03panchal/medtrack/internal/errors"
	"github.com/manav03panchal/medtrack/internal/logging"
	"github.com/manav03panchal/medtrack/internal/model"
)

// sequenceBandwidth is how many keys a sequence leases at once.
const sequenceBandwidth = 100

// DB wraps a Badger database connection.
type DB struct {
	db   *badger.DB
	path string
	lock *FileLock

	seqMu sync.Mutex
	seqs  map[string]*badger.Sequence

	cancelGC func()
	wg       sync.WaitGroup
}

// Options configures the database connection.
type Options struct {
	// Path is the database directory path. Empty string uses in-memory mode.
	Path string
	// InMemory forces in-memory mode regardless of Path.
	InMemory bool
	// MinFreeSpace is the free space required to open an on-disk database.
	// Zero disables the check.
	MinFreeSpace uint64
	// GCInterval is how often the value log is garbage collected. Zero disables it.
	GCInterval time.Duration
}

// OptionsFromConfig builds Options from the runtime configuration.
func OptionsFromConfig(cfg *config.RuntimeConfig) Options {
	return Options{
		Path:         cfg.Storage.Path,
		InMemory:     cfg.InMemory(),
		MinFreeSpace: cfg.Storage.MinFreeSpace,
		GCInterval:   cfg.Storage.GCInterval,
	}
}

// DefaultPath returns the default database path following XDG spec.
func DefaultPath() string {
	return config.DefaultDBPath()
}

// Open opens or creates a database at the given path.
func Open(opts Options) (*DB, error) {
	var badgerOpts badger.Options
	var lock *FileLock

	inMemory := opts.InMemory || opts.Path == "" || opts.Path == config.InMemoryPath
	if inMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := CheckDiskSpace(opts.Path, opts.MinFreeSpace); err != nil {
			return nil, err
		}
		if err := EnsureDirectory(opts.Path); err != nil {
			return nil, err
		}

		lock = NewFileLock(opts.Path)
		if err := lock.Acquire(); err != nil {
			return nil, errors.NewPersistenceError("open", "database unavailable", NewLockError(err))
		}
		badgerOpts = badger.DefaultOptions(opts.Path)
	}

	// Reduce logging noise
	badgerOpts = badgerOpts.WithLoggingLevel(badger.ERROR)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		if lock != nil {
			_ = lock.Release()
		}
		if IsDatabaseCorrupted(err) {
			return nil, errors.NewPersistenceError("open", "database corrupted",
				fmt.Errorf("%w: %v", errors.ErrDatabaseCorrupted, err))
		}
		return nil, errors.NewPersistenceError("open", "failed to open database", err)
	}

	d := &DB{
		db:   db,
		path: opts.Path,
		lock: lock,
		seqs: make(map[string]*badger.Sequence),
	}
	if inMemory {
		d.path = ""
	}
	if !inMemory && opts.GCInterval > 0 {
		d.startGC(opts.GCInterval)
	}
	return d, nil
}

// startGC runs value log garbage collection on a ticker until Close.
func (d *DB) startGC(interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	d.cancelGC = cancel

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				for d.db.RunValueLogGC(0.5) == nil && ctx.Err() == nil {
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// NextKey allocates the next primary key for an entity prefix.
// Keys start at 1; model.UnsetKey is never returned.
func (d *DB) NextKey(prefix string) (int64, error) {
	d.seqMu.Lock()
	defer d.seqMu.Unlock()

	seq, ok := d.seqs[prefix]
	if !ok {
		var err error
		seq, err = d.db.GetSequence([]byte(model.SequenceKey(prefix)), sequenceBandwidth)
		if err != nil {
			return model.UnsetKey, err
		}
		d.seqs[prefix] = seq
	}

	n, err := seq.Next()
	if err != nil {
		return model.UnsetKey, err
	}
	return int64(n) + 1, nil
}

// Close closes the database connection and releases the directory lock.
func (d *DB) Close() error {
	if d.cancelGC != nil {
		d.cancelGC()
	}
	d.wg.Wait()

	d.seqMu.Lock()
	for prefix, seq := range d.seqs {
		if err := seq.Release(); err != nil {
			logging.Warn("failed to release key sequence", "prefix", prefix, logging.KeyError, err)
		}
	}
	d.seqs = map[string]*badger.Sequence{}
	d.seqMu.Unlock()

	err := d.db.Close()
	if d.lock != nil {
		if lerr := d.lock.Release(); lerr != nil && err == nil {
			err = lerr
		}
	}
	return err
}

// Path returns the database directory, or "" for in-memory databases.
func (d *DB) Path() string {
	return d.path
}

// InMemory reports whether the database has no on-disk directory.
func (d *DB) InMemory() bool {
	return d.path == ""
}

// Badger returns the underlying Badger database for advanced operations.
func (d *DB) Badger() *badger.DB {
	return d.db
}

// EnsureDirectory creates a directory with safe permissions if it doesn't exist.
func EnsureDirectory(path string) error {
	if err := os.MkdirAll(path, 0700); err != nil {
		if isDiskFullError(err) {
			return errors.NewPersistenceError("mkdir", "disk full", errors.ErrDiskFull)
		}
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}
