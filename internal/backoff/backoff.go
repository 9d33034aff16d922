// Package backoff computes retry delays for the executor's attempt loop.
package backoff

import (
	"math/rand"
	"time"
)

// JitterRange is the width of the uniform jitter window added to every
// computed delay before capping.
const JitterRange = time.Second

// maxShift bounds the exponent so the doubling never overflows.
const maxShift = 30

// Source yields a uniform value in [0, 1). Injecting a fixed Source makes
// delays deterministic for tests.
type Source func() float64

// Strategy is the delay calculation contract used by the executor.
type Strategy interface {
	// Delay returns the wait before retrying after a failure at the given
	// zero-based attempt number.
	Delay(attempt int, base, max time.Duration) time.Duration
}

// ExponentialJitter doubles the base delay per attempt, adds uniform jitter
// from [0, JitterRange) and caps the sum at max. Jitter desynchronizes
// callers that failed at the same instant.
type ExponentialJitter struct {
	jitter Source
}

// NewExponentialJitter returns the default strategy. A nil source falls back
// to math/rand.
func NewExponentialJitter(src Source) ExponentialJitter {
	if src == nil {
		src = rand.Float64
	}
	return ExponentialJitter{jitter: src}
}

// Delay implements Strategy.
func (s ExponentialJitter) Delay(attempt int, base, max time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > maxShift {
		attempt = maxShift
	}

	d := base << uint(attempt)
	if d < 0 || d > max {
		// Overflowed or past the cap; jitter cannot lower it below max.
		return max
	}

	d += time.Duration(s.jitter() * float64(JitterRange))
	if d > max {
		d = max
	}
	return d
}
