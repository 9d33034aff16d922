package onceflight

import (
	"fmt"
	"time"

	"github.com/prasastio/onceflight/internal/backoff"
)

// WithDefaultPolicy replaces the executor's default Policy. Per-call options
// still merge over it.
func WithDefaultPolicy(p Policy) Option {
	return func(e *Executor) {
		e.defaults = p
	}
}

// WithLogger sets the structured logging collaborator. A nil logger disables
// logging.
func WithLogger(logger Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithSimpleLogger enables logging with a development-friendly console
// logger.
func WithSimpleLogger() Option {
	return func(e *Executor) {
		e.logger = NewSimpleLogger()
	}
}

// WithMetrics enables Prometheus metrics collection on the default
// registerer.
func WithMetrics() Option {
	return func(e *Executor) {
		e.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector.
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(e *Executor) {
		e.metrics = collector
	}
}

// WithBreakerCapacity bounds the number of keys with tracked breaker state.
// Least recently used keys are evicted past the bound and start over closed.
func WithBreakerCapacity(n int) Option {
	return func(e *Executor) {
		e.breakerCapacity = n
	}
}

// WithJitterSource injects the uniform [0, 1) source used for backoff
// jitter. Tests pass a fixed source for deterministic delays.
func WithJitterSource(src func() float64) Option {
	return func(e *Executor) {
		e.strategy = backoff.NewExponentialJitter(src)
	}
}

// WithTimeout overrides the per-attempt timeout for one call.
func WithTimeout(d time.Duration) CallOption {
	return func(p *Policy) {
		p.Timeout = d
	}
}

// WithRetries overrides the retry count for one call. An always-failing
// operation runs n+1 times.
func WithRetries(n int) CallOption {
	return func(p *Policy) {
		p.MaxRetries = n
	}
}

// WithRetryDelay overrides the base backoff delay for one call.
func WithRetryDelay(d time.Duration) CallOption {
	return func(p *Policy) {
		p.RetryDelay = d
	}
}

// WithMaxRetryDelay overrides the backoff cap for one call.
func WithMaxRetryDelay(d time.Duration) CallOption {
	return func(p *Policy) {
		p.MaxRetryDelay = d
	}
}

// WithBreakerThreshold overrides the consecutive-failure threshold for one
// call.
func WithBreakerThreshold(n int) CallOption {
	return func(p *Policy) {
		p.BreakerThreshold = n
	}
}

// WithBreakerResetTime overrides the open-circuit cooldown for one call.
func WithBreakerResetTime(d time.Duration) CallOption {
	return func(p *Policy) {
		p.BreakerResetTime = d
	}
}

// ValidateConfiguration validates the executor configuration and returns an
// error listing every problem found.
func (e *Executor) ValidateConfiguration() error {
	var problems []string

	problems = append(problems, validatePolicy(e.defaults)...)

	if e.breakerCapacity <= 0 {
		problems = append(problems, "breaker capacity must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("onceflight: configuration validation failed: %v", problems)
	}
	return nil
}

func validatePolicy(p Policy) []string {
	var problems []string

	if p.Timeout <= 0 {
		problems = append(problems, "timeout must be positive")
	}
	if p.MaxRetries < 0 {
		problems = append(problems, "retries must be non-negative")
	}
	if p.RetryDelay <= 0 {
		problems = append(problems, "retryDelay must be positive")
	}
	if p.MaxRetryDelay < p.RetryDelay {
		problems = append(problems, "maxRetryDelay must be greater than or equal to retryDelay")
	}
	if p.BreakerThreshold <= 0 {
		problems = append(problems, "breaker threshold must be positive")
	}
	if p.BreakerResetTime <= 0 {
		problems = append(problems, "breaker reset time must be positive")
	}

	if p.MaxRetries > 100 {
		problems = append(problems, "retries > 100 may cause excessive resource usage")
	}
	if p.MaxRetryDelay > time.Hour {
		problems = append(problems, "maxRetryDelay > 1h may cause extremely long delays")
	}
	if p.Timeout > 10*time.Minute {
		problems = append(problems, "timeout > 10m may cause calls to hang for too long")
	}

	return problems
}
