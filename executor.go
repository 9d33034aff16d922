package onceflight

import (
	"context"
	"errors"
	"time"

	"github.com/prasastio/onceflight/internal/backoff"
)

// Executor orchestrates breaker checks, in-flight deduplication, timeout
// raced attempts and backoff retries for every call. It is safe for
// concurrent use; construct one per composition root and share it.
type Executor struct {
	defaults        Policy
	breakers        *BreakerRegistry
	inflight        *InFlightTracker
	strategy        backoff.Strategy
	breakerCapacity int
	logger          Logger
	metrics         *MetricsCollector
	validationError error
}

// New constructs an Executor using the provided functional options. A best
// effort validation is performed; call IsValid / ValidationError for errors.
func New(options ...Option) *Executor {
	e := &Executor{
		defaults:        DefaultPolicy(),
		inflight:        NewInFlightTracker(),
		strategy:        backoff.NewExponentialJitter(nil),
		breakerCapacity: DefaultBreakerCapacity,
		logger:          nil,
		metrics:         nil,
	}

	for _, option := range options {
		option(e)
	}

	registry, err := NewBreakerRegistry(e.breakerCapacity)
	if err != nil {
		e.validationError = err
		registry, _ = NewBreakerRegistry(DefaultBreakerCapacity)
	}
	e.breakers = registry

	if err := e.ValidateConfiguration(); err != nil {
		e.validationError = err
	}

	return e
}

type attemptResult struct {
	val any
	err error
}

// Do executes op under the executor's guarantees. Callers that arrive while
// an execution for key is in flight receive that execution's eventual result
// instead of starting a new one; they piggyback on any retries already
// underway.
func (e *Executor) Do(ctx context.Context, key string, op Operation, opts ...CallOption) (any, error) {
	pol := e.defaults
	for _, opt := range opts {
		opt(&pol)
	}

	start := time.Now()
	e.metrics.RecordRequestStart(key)
	defer e.metrics.RecordRequestEnd(key)

	if e.breakers.IsOpen(key, pol.BreakerResetTime) {
		if e.logger != nil {
			e.logger.Warn("circuit open, rejecting call", "key", key, "failures", e.breakers.Breaker(key).Failures())
		}
		e.metrics.RecordBreakerRejection(key)
		e.metrics.RecordRequest(key, "rejected", time.Since(start))
		return nil, &CircuitOpenError{Key: key}
	}

	if e.breakers.Breaker(key).State() == StateHalfOpen {
		if e.logger != nil {
			e.logger.Info("circuit half-open, permitting trial call", "key", key)
		}
		e.metrics.RecordBreakerState(key, StateHalfOpen)
	}

	// The breaker check and the claim are separate critical sections, so a
	// caller that observed Closed may win ownership just after the previous
	// owner tripped the circuit. That caller executes one attempt against a
	// freshly opened circuit, the same exposure as a half-open trial.
	flight, owner := e.inflight.Claim(key)
	if !owner {
		if e.logger != nil {
			e.logger.Debug("deduplication hit, joining in-flight call", "key", key)
		}
		e.metrics.RecordDedupHit(key)
		val, err := flight.Wait(ctx)
		e.metrics.RecordRequest(key, outcomeLabel(err), time.Since(start))
		return val, err
	}

	val, err := e.run(ctx, key, op, pol)

	// Unconditional release: the entry leaves the tracker the moment the
	// shared result settles, success or failure.
	e.inflight.Complete(key, flight, val, err)

	e.metrics.RecordRequest(key, outcomeLabel(err), time.Since(start))
	return val, err
}

// run performs the attempt loop for the single owning caller of key.
func (e *Executor) run(ctx context.Context, key string, op Operation, pol Policy) (any, error) {
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			e.metrics.RecordRetry(key, attempt)
		}

		val, err := e.attempt(ctx, key, op, pol, attempt)
		if err == nil {
			e.breakers.RecordSuccess(key)
			e.metrics.RecordBreakerState(key, StateClosed)
			return val, nil
		}

		if ctx.Err() != nil {
			// Caller cancellation is not a dependency failure; the breaker
			// is not charged, and a granted half-open trial is handed back
			// so the next caller can attempt it.
			e.breakers.Breaker(key).Relinquish()
			if e.logger != nil {
				e.logger.Debug("call cancelled", "key", key, "attempt", attempt)
			}
			return nil, ctx.Err()
		}

		tripped := e.breakers.RecordFailure(key, pol.BreakerThreshold)
		breaker := e.breakers.Breaker(key)
		e.metrics.RecordBreakerState(key, breaker.State())
		e.metrics.RecordError(errorLabel(err), key)

		if attempt >= pol.MaxRetries {
			if e.logger != nil {
				e.logger.Error("retries exhausted", "key", key, "attempts", attempt+1, "error", err)
			}
			return nil, err
		}

		if tripped {
			if e.logger != nil {
				e.logger.Warn("circuit tripped, abandoning retries", "key", key, "failures", breaker.Failures(), "error", err)
			}
			e.metrics.RecordBreakerTrip(key)
			return nil, &CircuitTrippedError{Key: key, Failures: breaker.Failures(), Cause: err}
		}

		delay := e.strategy.Delay(attempt, pol.RetryDelay, pol.MaxRetryDelay)
		if e.logger != nil {
			e.logger.Info("scheduling retry", "key", key, "attempt", attempt+1, "maxRetries", pol.MaxRetries, "delay", delay, "error", err)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// attempt races one invocation of op against the per-attempt timeout. The
// operation's context is cancelled when the race is lost so a well-behaved
// op stops doing work, but the attempt is charged as a timeout either way.
func (e *Executor) attempt(ctx context.Context, key string, op Operation, pol Policy, attempt int) (any, error) {
	actx, cancel := context.WithTimeout(ctx, pol.Timeout)
	defer cancel()

	ch := make(chan attemptResult, 1)
	go func() {
		val, err := op(actx)
		ch <- attemptResult{val: val, err: err}
	}()

	select {
	case r := <-ch:
		return r.val, r.err
	case <-actx.Done():
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, &TimeoutError{Key: key, Attempt: attempt, Timeout: pol.Timeout}
	}
}

// Clear forcibly drops both the in-flight entry and the breaker state for
// one key. It is an operator and test escape hatch, not part of the normal
// flow: an execution already running is not interrupted, its settlement just
// no longer occupies the key.
func (e *Executor) Clear(key string) {
	e.inflight.Forget(key)
	e.breakers.Reset(key)
}

// ClearAll drops all in-flight entries and all breaker state.
func (e *Executor) ClearAll() {
	e.inflight.ForgetAll()
	e.breakers.ResetAll()
}

// Stats returns a snapshot of current bookkeeping.
func (e *Executor) Stats() Stats {
	return Stats{
		InFlight: e.inflight.Len(),
		Breakers: e.breakers.Len(),
	}
}

// BreakerState returns the circuit state for key. A key never seen reports
// closed.
func (e *Executor) BreakerState(key string) CircuitState {
	return e.breakers.Breaker(key).State()
}

// IsValid reports whether configuration validation passed at construction.
func (e *Executor) IsValid() bool {
	return e.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (e *Executor) ValidationError() error {
	return e.validationError
}

func outcomeLabel(err error) string {
	if err == nil {
		return "success"
	}
	return "error"
}

func errorLabel(err error) string {
	if errors.Is(err, ErrTimeout) {
		return "timeout"
	}
	return "operation"
}
