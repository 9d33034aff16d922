package onceflight

import (
	"context"
	"time"
)

// Operation is the caller-supplied remote call. It must honor ctx: the
// executor cancels it when the per-attempt timeout fires.
type Operation func(ctx context.Context) (any, error)

// Policy holds the retry and breaker configuration for one call. A Policy is
// copied when a call starts, so mutating options never affect calls already
// in flight.
type Policy struct {
	// Timeout bounds a single attempt. An attempt that does not settle in
	// time counts as a failure.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt, so an
	// always-failing operation runs MaxRetries+1 times.
	MaxRetries int

	// RetryDelay is the base backoff delay; attempt n waits roughly
	// RetryDelay * 2^n plus jitter.
	RetryDelay time.Duration

	// MaxRetryDelay caps the computed backoff.
	MaxRetryDelay time.Duration

	// BreakerThreshold is the number of consecutive failures that opens the
	// key's circuit.
	BreakerThreshold int

	// BreakerResetTime is how long an open circuit blocks calls before a
	// half-open trial is permitted.
	BreakerResetTime time.Duration
}

// DefaultPolicy returns the built-in defaults: 5s timeout, 3 retries, 1s base
// delay capped at 10s, breaker threshold 5, breaker reset 30s.
func DefaultPolicy() Policy {
	return Policy{
		Timeout:          5 * time.Second,
		MaxRetries:       3,
		RetryDelay:       time.Second,
		MaxRetryDelay:    10 * time.Second,
		BreakerThreshold: 5,
		BreakerResetTime: 30 * time.Second,
	}
}

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

// String returns the lowercase state name for logs and labels.
func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Option configures an Executor at construction time.
type Option func(*Executor)

// CallOption overrides part of the Policy for a single call.
type CallOption func(*Policy)

// Stats is a point-in-time snapshot of executor bookkeeping, exposed for
// observability and tests.
type Stats struct {
	// InFlight is the number of logical keys with an unsettled execution.
	InFlight int
	// Breakers is the number of keys with tracked circuit breaker state.
	Breakers int
}

// Logger is the structured logging collaborator. Key/value context pairs
// follow the message. Implementations must be safe for concurrent use.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}
