// Package model defines the domain models for medtrack.
package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Model is the interface that all database models must implement.
type Model interface {
	// SetKey sets the database key for this model.
	SetKey(key string)
	// GetKey returns the database key for this model.
	GetKey() string
}

// KeyPrefix constants for database key generation.
const (
	PrefixMedication     = "medication"
	PrefixMedicationName = "medication-name"
	PrefixReminder       = "reminder"
	PrefixSequence       = "seq"
)

// UnsetKey is the primary key of a record that has not been persisted yet.
const UnsetKey int64 = 0

// keyDigits is the zero padding width of primary keys in database keys, so
// that prefix iteration returns rows in primary key order.
const keyDigits = 20

// GenerateKey builds a database key from a table prefix and a primary key.
func GenerateKey(prefix string, pk int64) string {
	return fmt.Sprintf("%s:%0*d", prefix, keyDigits, pk)
}

// ParseKey extracts the primary key from a database key with the given prefix.
func ParseKey(prefix, key string) (int64, error) {
	rest, ok := strings.CutPrefix(key, prefix+":")
	if !ok {
		return UnsetKey, fmt.Errorf("key %q does not have prefix %q", key, prefix)
	}
	pk, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return UnsetKey, fmt.Errorf("key %q: %w", key, err)
	}
	return pk, nil
}

// SequenceKey returns the key of the primary key sequence for a table.
func SequenceKey(prefix string) string {
	return PrefixSequence + ":" + prefix
}
