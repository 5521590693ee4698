package repository

import (
	"slices"
	"sync"
)

// rowLocks serialises writers per row key. Entries are reference counted
// and dropped once no goroutine holds or waits on them.
type rowLocks struct {
	mu    sync.Mutex
	locks map[string]*rowLock
}

type rowLock struct {
	sync.Mutex
	refs int
}

func newRowLocks() *rowLocks {
	return &rowLocks{locks: make(map[string]*rowLock)}
}

// lock acquires every key in sorted order and returns the matching unlock.
func (l *rowLocks) lock(keys ...string) func() {
	keys = slices.Clone(keys)
	slices.Sort(keys)
	keys = slices.Compact(keys)

	held := make([]*rowLock, 0, len(keys))
	for _, key := range keys {
		l.mu.Lock()
		rl, ok := l.locks[key]
		if !ok {
			rl = &rowLock{}
			l.locks[key] = rl
		}
		rl.refs++
		l.mu.Unlock()

		rl.Lock()
		held = append(held, rl)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
			l.mu.Lock()
			held[i].refs--
			if held[i].refs == 0 {
				delete(l.locks, keys[i])
			}
			l.mu.Unlock()
		}
	}
}

// size reports how many row entries are currently tracked.
func (l *rowLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// table names used for table-wide locking.
const (
	tableMedication = "medication"
	tableReminder   = "reminder"
)

// tableLocks lets bulk deletes exclude row writers of a table. Row writers
// share the lock, bulk operations hold it exclusively. Tables are always
// taken in tableOrder.
type tableLocks struct {
	medication sync.RWMutex
	reminder   sync.RWMutex
}

var tableOrder = []string{tableMedication, tableReminder}

func (t *tableLocks) get(name string) *sync.RWMutex {
	switch name {
	case tableMedication:
		return &t.medication
	case tableReminder:
		return &t.reminder
	default:
		panic("repository: unknown table " + name)
	}
}

// share takes the named tables in shared mode.
func (t *tableLocks) share(names ...string) func() {
	return t.acquire(false, names)
}

// exclusive takes the named tables in exclusive mode.
func (t *tableLocks) exclusive(names ...string) func() {
	return t.acquire(true, names)
}

func (t *tableLocks) acquire(exclusive bool, names []string) func() {
	var held []*sync.RWMutex
	for _, name := range tableOrder {
		if !slices.Contains(names, name) {
			continue
		}
		m := t.get(name)
		if exclusive {
			m.Lock()
		} else {
			m.RLock()
		}
		held = append(held, m)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			if exclusive {
				held[i].Unlock()
			} else {
				held[i].RUnlock()
			}
		}
	}
}
