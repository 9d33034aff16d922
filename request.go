package onceflight

import (
	"context"
	"fmt"
	"sync"
)

var (
	defaultExecutor     *Executor
	defaultExecutorOnce sync.Once
)

// Default returns the shared package-level Executor, constructing it with
// default options on first use. Applications with their own composition root
// should prefer New and pass the instance around; Default exists for
// ergonomics only.
func Default() *Executor {
	defaultExecutorOnce.Do(func() {
		defaultExecutor = New()
	})
	return defaultExecutor
}

// Request executes op through the package-level default Executor. See Do for
// semantics.
func Request[T any](ctx context.Context, key string, op func(ctx context.Context) (T, error), opts ...CallOption) (T, error) {
	return Do(ctx, Default(), key, op, opts...)
}

// Do is the typed entry point: it executes op through e under the full set
// of guarantees (deduplication, retries, circuit breaking) and returns the
// operation's value without a type assertion at the call site.
//
// Every caller of the same key must use the same type T: piggybacking
// callers receive the owning call's result, and a mismatched T yields an
// error rather than a value.
func Do[T any](ctx context.Context, e *Executor, key string, op func(ctx context.Context) (T, error), opts ...CallOption) (T, error) {
	var zero T

	val, err := e.Do(ctx, key, func(ctx context.Context) (any, error) {
		return op(ctx)
	}, opts...)
	if err != nil {
		return zero, err
	}
	if val == nil {
		return zero, nil
	}

	typed, ok := val.(T)
	if !ok {
		return zero, fmt.Errorf("onceflight: key %q resolved to %T, caller expected %T", key, val, zero)
	}
	return typed, nil
}
