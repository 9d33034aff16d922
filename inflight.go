package onceflight

import (
	"context"
	"sync"
)

// FlightEntry is the single pending result shared by every caller of one
// logical key. The owning caller settles it exactly once; waiters block on
// Wait until then.
type FlightEntry struct {
	done chan struct{}
	val  any
	err  error
}

func newFlightEntry() *FlightEntry {
	return &FlightEntry{done: make(chan struct{})}
}

// Wait blocks until the entry settles or ctx is done. Abandoning the wait
// does not interrupt the underlying execution; the shared result is simply
// discarded for this caller.
func (f *FlightEntry) Wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// InFlightTracker maps logical keys to their single outstanding execution.
// At most one FlightEntry exists per key at any instant.
type InFlightTracker struct {
	mu      sync.Mutex
	flights map[string]*FlightEntry
}

// NewInFlightTracker returns an empty tracker.
func NewInFlightTracker() *InFlightTracker {
	return &InFlightTracker{flights: make(map[string]*FlightEntry)}
}

// Claim returns the entry for key and whether the caller became its owner.
// The lookup and the registration of a new entry happen under one lock, so
// two concurrent callers can never both claim ownership for the same key.
func (t *InFlightTracker) Claim(key string) (*FlightEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if f, ok := t.flights[key]; ok {
		return f, false
	}
	f := newFlightEntry()
	t.flights[key] = f
	return f, true
}

// Complete settles the entry and removes it from the tracker in the same
// step, so a fresh call for key is never deduplicated against a settled
// result. The entry is settled even if it was already forgotten via Forget,
// which is how waiters on an administratively cleared key still unblock.
func (t *InFlightTracker) Complete(key string, f *FlightEntry, val any, err error) {
	t.mu.Lock()
	if t.flights[key] == f {
		delete(t.flights, key)
	}
	t.mu.Unlock()

	f.val = val
	f.err = err
	close(f.done)
}

// Forget drops the entry for key without settling it. The abandoned
// execution keeps running; its eventual settlement no longer occupies the
// key.
func (t *InFlightTracker) Forget(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.flights, key)
}

// ForgetAll drops every entry without settling them.
func (t *InFlightTracker) ForgetAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.flights = make(map[string]*FlightEntry)
}

// Len returns the number of keys with an unsettled execution.
func (t *InFlightTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.flights)
}
