package service

import "sync"

// TripLocks is an arena of per-trip mutexes: mutations on one trip are
// serialized, mutations on different trips proceed in parallel. Entries
// are reference counted and removed when the last holder releases, so
// finished trips do not accumulate.
type TripLocks struct {
	mu      sync.Mutex
	entries map[string]*tripLockEntry
}

type tripLockEntry struct {
	mu   sync.Mutex
	refs int
}

// NewTripLocks creates a new TripLocks.
func NewTripLocks() *TripLocks {
	return &TripLocks{entries: make(map[string]*tripLockEntry)}
}

// Lock acquires the mutex for the trip, creating it on first use.
func (l *TripLocks) Lock(tripID string) {
	l.mu.Lock()
	entry, ok := l.entries[tripID]
	if !ok {
		entry = &tripLockEntry{}
		l.entries[tripID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
}

// Unlock releases the trip's mutex and drops the entry when no other
// goroutine is waiting on it.
func (l *TripLocks) Unlock(tripID string) {
	l.mu.Lock()
	entry, ok := l.entries[tripID]
	if ok {
		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, tripID)
		}
	}
	l.mu.Unlock()

	if ok {
		entry.mu.Unlock()
	}
}
