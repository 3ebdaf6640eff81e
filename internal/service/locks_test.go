package service

import (
	"sync"
	"testing"
)

func TestTripLocks_MutualExclusionPerTrip(t *testing.T) {
	t.Parallel()

	locks := NewTripLocks()

	const goroutines = 20
	const increments = 100

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < increments; j++ {
				locks.Lock("trip-1")
				counter++
				locks.Unlock("trip-1")
			}
		}()
	}
	wg.Wait()

	if counter != goroutines*increments {
		t.Errorf("counter %d, want %d", counter, goroutines*increments)
	}
}

func TestTripLocks_IndependentTrips(t *testing.T) {
	t.Parallel()

	locks := NewTripLocks()
	locks.Lock("trip-1")

	// A different trip's lock must not be held by trip-1's holder.
	done := make(chan struct{})
	go func() {
		locks.Lock("trip-2")
		locks.Unlock("trip-2")
		close(done)
	}()
	<-done

	locks.Unlock("trip-1")
}

func TestTripLocks_EntriesReleased(t *testing.T) {
	t.Parallel()

	locks := NewTripLocks()
	for i := 0; i < 10; i++ {
		locks.Lock("trip-1")
		locks.Unlock("trip-1")
	}

	locks.mu.Lock()
	n := len(locks.entries)
	locks.mu.Unlock()
	if n != 0 {
		t.Errorf("expected empty arena after release, got %d entries", n)
	}
}
