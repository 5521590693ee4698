package storage

import (
	"encoding/json"
	"errors"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/manav03panchal/medtrack/internal/model"
)

var (
	// ErrKeyNotFound is returned when a key is not found in the database.
	ErrKeyNotFound = errors.New("key not found")
)

// deleteBatchSize bounds how many keys one write batch flush carries.
const deleteBatchSize = 1000

// IsErrKeyNotFound returns true if the error is a key not found error.
func IsErrKeyNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound) || errors.Is(err, badger.ErrKeyNotFound)
}

// IsErrConflict reports whether a transaction lost a write conflict and may be retried.
func IsErrConflict(err error) bool {
	return errors.Is(err, badger.ErrConflict)
}

// Tx is a read-write or read-only transaction.
type Tx struct {
	txn *badger.Txn
}

// Update runs fn in a read-write transaction and commits it if fn returns nil.
func (d *DB) Update(fn func(tx *Tx) error) error {
	return d.db.Update(func(txn *badger.Txn) error {
		return fn(&Tx{txn: txn})
	})
}

// View runs fn in a read-only transaction.
func (d *DB) View(fn func(tx *Tx) error) error {
	return d.db.View(func(txn *badger.Txn) error {
		return fn(&Tx{txn: txn})
	})
}

// Get retrieves a value by key and unmarshals it into v.
func (t *Tx) Get(key string, v model.Model) error {
	if err := t.GetJSON(key, v); err != nil {
		return err
	}
	v.SetKey(key)
	return nil
}

// GetJSON retrieves a value by key and unmarshals it into v.
func (t *Tx) GetJSON(key string, v any) error {
	item, err := t.txn.Get([]byte(key))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrKeyNotFound
		}
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

// Set stores a model.
func (t *Tx) Set(v model.Model) error {
	return t.SetJSON(v.GetKey(), v)
}

// SetJSON stores v as JSON under key.
func (t *Tx) SetJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return t.txn.Set([]byte(key), data)
}

// Delete removes a key.
func (t *Tx) Delete(key string) error {
	return t.txn.Delete([]byte(key))
}

// Exists checks if a key exists.
func (t *Tx) Exists(key string) (bool, error) {
	_, err := t.txn.Get([]byte(key))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Get retrieves a value by key and unmarshals it into v.
func (d *DB) Get(key string, v model.Model) error {
	return d.View(func(tx *Tx) error {
		return tx.Get(key, v)
	})
}

// Set stores a model in the database.
func (d *DB) Set(v model.Model) error {
	return d.Update(func(tx *Tx) error {
		return tx.Set(v)
	})
}

// Delete removes a key from the database.
func (d *DB) Delete(key string) error {
	return d.Update(func(tx *Tx) error {
		return tx.Delete(key)
	})
}

// Exists checks if a key exists in the database.
func (d *DB) Exists(key string) (bool, error) {
	var exists bool
	err := d.View(func(tx *Tx) error {
		var err error
		exists, err = tx.Exists(key)
		return err
	})
	return exists, err
}

// ListByPrefix retrieves all keys with the given prefix.
func (d *DB) ListByPrefix(prefix string) ([]string, error) {
	var keys []string
	err := d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefixBytes := []byte(prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	return keys, err
}

// DeleteKeys removes keys in write batches and returns how many were deleted.
func (d *DB) DeleteKeys(keys []string) (int, error) {
	deleted := 0
	for start := 0; start < len(keys); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(keys))

		wb := d.db.NewWriteBatch()
		for _, key := range keys[start:end] {
			if err := wb.Delete([]byte(key)); err != nil {
				wb.Cancel()
				return deleted, err
			}
		}
		if err := wb.Flush(); err != nil {
			return deleted, err
		}
		deleted += end - start
	}
	return deleted, nil
}

// GetAllByPrefix retrieves all values with the given prefix in key order.
func GetAllByPrefix[T model.Model](d *DB, prefix string, newFunc func() T) ([]T, error) {
	var results []T
	err := d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchSize = 100
		it := txn.NewIterator(opts)
		defer it.Close()

		prefixBytes := []byte(prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				v := newFunc()
				if err := json.Unmarshal(val, v); err != nil {
					return err
				}
				v.SetKey(string(item.Key()))
				results = append(results, v)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return results, err
}
