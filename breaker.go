package onceflight

import (
	"sync"
	"time"

	"github.com/maypok86/otter/v2"
)

// CircuitBreaker tracks consecutive failures for one logical key.
//
// State machine: Closed → (failures reach threshold) → Open → (reset window
// elapses) → Half-Open, which permits exactly one trial call. A successful
// trial closes the circuit; a failed trial re-opens it and restarts the
// reset window. The operation is only invoked in Closed and Half-Open.
type CircuitBreaker struct {
	mu        sync.Mutex
	failures  int
	open      bool
	halfOpen  bool // a half-open trial has been granted and has not settled
	trippedAt time.Time
}

// Allow reports whether an execution attempt may proceed. When the reset
// window has elapsed on an open circuit it grants a single half-open trial;
// further calls are rejected until the trial settles via RecordSuccess or
// RecordFailure.
func (b *CircuitBreaker) Allow(resetWindow time.Duration) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return true
	}
	if b.halfOpen {
		return false
	}
	if time.Since(b.trippedAt) >= resetWindow {
		b.halfOpen = true
		return true
	}
	return false
}

// RecordSuccess closes the circuit and resets the failure count.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.open = false
	b.halfOpen = false
	b.trippedAt = time.Time{}
}

// Relinquish hands back an unsettled half-open trial without charging a
// failure and without restarting the reset window, so the next caller may
// attempt the trial instead. It is a no-op when no trial is outstanding.
func (b *CircuitBreaker) Relinquish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.halfOpen = false
}

// RecordFailure increments the consecutive failure count. It returns true
// when this failure transitions the circuit to a blocking open state: either
// the count reached threshold, or a half-open trial failed and the reset
// window restarted.
func (b *CircuitBreaker) RecordFailure(threshold int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++

	if b.open {
		// Half-open trial failed: re-arm the window, do not retry again.
		tripped := b.halfOpen
		b.halfOpen = false
		b.trippedAt = time.Now()
		return tripped
	}

	if b.failures >= threshold {
		b.open = true
		b.trippedAt = time.Now()
		return true
	}
	return false
}

// State returns the breaker's current state. An open breaker whose reset
// window elapsed still reports open until Allow grants the trial.
func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case b.halfOpen:
		return StateHalfOpen
	case b.open:
		return StateOpen
	default:
		return StateClosed
	}
}

// Failures returns the consecutive failure count.
func (b *CircuitBreaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// DefaultBreakerCapacity bounds the breaker registry when no capacity is
// configured. Keys past the bound are evicted least-recently-used; an
// evicted key starts over in Closed.
const DefaultBreakerCapacity = 4096

// BreakerRegistry holds one CircuitBreaker per logical key, created lazily
// on first use. The registry is backed by a size-bounded cache so
// high-cardinality keys cannot grow memory without limit.
type BreakerRegistry struct {
	mu    sync.Mutex
	cache *otter.Cache[string, *CircuitBreaker]
}

// NewBreakerRegistry creates a registry bounded to capacity keys. A
// non-positive capacity falls back to DefaultBreakerCapacity.
func NewBreakerRegistry(capacity int) (*BreakerRegistry, error) {
	if capacity <= 0 {
		capacity = DefaultBreakerCapacity
	}
	cache, err := otter.New(&otter.Options[string, *CircuitBreaker]{
		MaximumSize: capacity,
	})
	if err != nil {
		return nil, err
	}
	return &BreakerRegistry{cache: cache}, nil
}

// Breaker returns the breaker for key, creating it in Closed state on first
// use. The check-and-create runs under one lock so concurrent callers for a
// new key share a single breaker.
func (r *BreakerRegistry) Breaker(key string) *CircuitBreaker {
	if b, ok := r.cache.GetIfPresent(key); ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.cache.GetIfPresent(key); ok {
		return b
	}
	b := &CircuitBreaker{}
	r.cache.Set(key, b)
	return b
}

// IsOpen reports whether key's circuit currently blocks execution, granting
// a half-open trial when the reset window has elapsed. A key with no state
// is closed.
func (r *BreakerRegistry) IsOpen(key string, resetWindow time.Duration) bool {
	return !r.Breaker(key).Allow(resetWindow)
}

// RecordSuccess resets key's breaker to Closed.
func (r *BreakerRegistry) RecordSuccess(key string) {
	r.Breaker(key).RecordSuccess()
}

// RecordFailure charges a failure against key and reports whether the
// circuit newly opened.
func (r *BreakerRegistry) RecordFailure(key string, threshold int) bool {
	return r.Breaker(key).RecordFailure(threshold)
}

// Reset drops all breaker state for key.
func (r *BreakerRegistry) Reset(key string) {
	r.cache.Invalidate(key)
}

// ResetAll drops all breaker state.
func (r *BreakerRegistry) ResetAll() {
	r.cache.InvalidateAll()
}

// Len returns the number of keys with tracked breaker state.
func (r *BreakerRegistry) Len() int {
	return r.cache.EstimatedSize()
}
