package repository

import (
	"slices"
	"sync"

	"github.com/manav03panchal/medtrack/internal/logging"
	"github.com/manav03panchal/medtrack/internal/model"
)

// LiveMedications is the medication table as a continuously updated view.
// The repository refreshes it after every committed medication mutation,
// before that mutation's future resolves.
type LiveMedications struct {
	load func() ([]*model.Medication, error)

	refreshMu sync.Mutex

	mu      sync.RWMutex
	items   []*model.Medication
	version uint64
	changed chan struct{}
}

func newLiveMedications(load func() ([]*model.Medication, error)) *LiveMedications {
	return &LiveMedications{
		load:    load,
		changed: make(chan struct{}),
	}
}

// Snapshot returns copies of the current rows in primary key order.
func (l *LiveMedications) Snapshot() []*model.Medication {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*model.Medication, len(l.items))
	for i, m := range l.items {
		out[i] = cloneMedication(m)
	}
	return out
}

// Len returns the current number of rows.
func (l *LiveMedications) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Version increases with every refresh that changed the view.
func (l *LiveMedications) Version() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.version
}

// Changes returns a channel that is closed at the next change.
// Callers re-read Snapshot and call Changes again to keep watching.
func (l *LiveMedications) Changes() <-chan struct{} {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.changed
}

// Find returns a copy of the row with the given primary key.
func (l *LiveMedications) Find(pk int64) (*model.Medication, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	i := slices.IndexFunc(l.items, func(m *model.Medication) bool { return m.PrimaryKey == pk })
	if i < 0 {
		return nil, false
	}
	return cloneMedication(l.items[i]), true
}

// refresh reloads the view from storage. Refreshes are serialised so the
// last one to finish always reflects the newest committed state. On a load
// error the previous view is kept.
func (l *LiveMedications) refresh() error {
	l.refreshMu.Lock()
	defer l.refreshMu.Unlock()

	items, err := l.load()
	if err != nil {
		logging.Warn("failed to refresh live medications", logging.KeyError, err)
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if slices.EqualFunc(l.items, items, medicationsEqual) {
		return nil
	}
	l.items = items
	l.version++
	close(l.changed)
	l.changed = make(chan struct{})
	return nil
}

func cloneMedication(m *model.Medication) *model.Medication {
	c := *m
	c.ReminderIDs = slices.Clone(m.ReminderIDs)
	return &c
}

func medicationsEqual(a, b *model.Medication) bool {
	return a.PrimaryKey == b.PrimaryKey &&
		a.Name == b.Name &&
		a.Dosage == b.Dosage &&
		a.FirstDate == b.FirstDate &&
		a.AcknowledgementList == b.AcknowledgementList &&
		slices.Equal(a.ReminderIDs, b.ReminderIDs)
}
