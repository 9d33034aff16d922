package onceflight

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for matching with errors.Is regardless of the typed error
// carrying them.
var (
	// ErrCircuitOpen is returned when the breaker for a key is open and the
	// reset window has not yet elapsed. The operation is never invoked.
	ErrCircuitOpen = errors.New("onceflight: circuit open")

	// ErrCircuitTripped is returned when a failure during the retry loop
	// newly opens the breaker; remaining retries are not spent.
	ErrCircuitTripped = errors.New("onceflight: circuit tripped")

	// ErrTimeout is returned when a single attempt does not settle within
	// the configured timeout.
	ErrTimeout = errors.New("onceflight: attempt timed out")
)

// CircuitOpenError reports a call rejected up front because the key's
// circuit is open. It does not consume a retry attempt and does not affect
// the failure count.
type CircuitOpenError struct {
	Key string
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("onceflight: circuit open for key %q", e.Key)
}

// Is matches ErrCircuitOpen for errors.Is.
func (e *CircuitOpenError) Is(target error) bool {
	return target == ErrCircuitOpen
}

// TimeoutError reports a single attempt exceeding its timeout. The executor
// treats it like any other attempt failure for retry and breaker accounting.
type TimeoutError struct {
	Key     string
	Attempt int
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("onceflight: key %q attempt %d timed out after %v", e.Key, e.Attempt, e.Timeout)
}

// Is matches ErrTimeout for errors.Is.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// CircuitTrippedError reports that a failure inside the retry loop opened
// the breaker. Cause is the failure that tripped it.
type CircuitTrippedError struct {
	Key      string
	Failures int
	Cause    error
}

func (e *CircuitTrippedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("onceflight: circuit tripped for key %q after %d consecutive failures: %v", e.Key, e.Failures, e.Cause)
	}
	return fmt.Sprintf("onceflight: circuit tripped for key %q after %d consecutive failures", e.Key, e.Failures)
}

// Unwrap returns the failure that tripped the breaker.
func (e *CircuitTrippedError) Unwrap() error {
	return e.Cause
}

// Is matches ErrCircuitTripped for errors.Is.
func (e *CircuitTrippedError) Is(target error) bool {
	return target == ErrCircuitTripped
}
