// Package onceflight wraps arbitrary asynchronous remote calls with three
// composed guarantees:
//
//   - At most one in-flight execution per logical key: concurrent callers
//     for the same key share the single pending result instead of starting
//     duplicate work
//   - Bounded retries with exponential backoff + jitter
//   - A per-key circuit breaker (closed / open / half-open) that stops
//     hammering a dependency that keeps failing
//
// Design goals:
//   - Small surface area: functional options configure everything
//   - Safe concurrent use of a single *Executor instance
//   - The remote call stays opaque: any func(ctx) (T, error) qualifies
//   - Pluggable logging (Logger interface) and Prometheus metrics
//
// Typical usage:
//
//	exec := onceflight.New(
//	    onceflight.WithSimpleLogger(),
//	    onceflight.WithMetrics(),
//	)
//	user, err := onceflight.Do(ctx, exec, "user:42", func(ctx context.Context) (*User, error) {
//	    return fetchUser(ctx, 42)
//	}, onceflight.WithRetries(2))
//
// A package level default instance is offered for ergonomics:
//
//	cfg, err := onceflight.Request(ctx, "config", loadConfig)
//
// Callers choose the logical key; the library never inspects arguments. The
// same key must always be used with the same result type. All executor state
// is local to one process: breaker state is not persisted across restarts
// and nothing is coordinated across machines.
package onceflight
