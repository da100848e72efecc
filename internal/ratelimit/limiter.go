// Package ratelimit paces outbound broker calls with a token-bucket
// limiter so a collector loop or burst of interactive requests never
// exceeds the broker's documented rate.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Default steady rates per spec.md §4.C. The discrepancy between the two
// is intentional safety margin: the backfill/collector path runs long,
// unattended loops and gets the more conservative budget.
const (
	DefaultBackfillPerSecond   = 15
	DefaultInteractivePerSecond = 20
)

// Limiter wraps golang.org/x/time/rate.Limiter behind the vocabulary this
// codebase uses at broker call sites: Acquire blocks cooperatively until a
// permit is available or ctx is done.
type Limiter struct {
	inner *rate.Limiter
}

// New returns a Limiter issuing permits at permitsPerSecond with a burst of
// one, so calls are paced rather than allowed to spike.
func New(permitsPerSecond float64) *Limiter {
	return &Limiter{inner: rate.NewLimiter(rate.Limit(permitsPerSecond), 1)}
}

// NewBackfill returns a Limiter configured for the collector/backfill path.
func NewBackfill() *Limiter {
	return New(DefaultBackfillPerSecond)
}

// NewInteractive returns a Limiter configured for interactive read paths.
func NewInteractive() *Limiter {
	return New(DefaultInteractivePerSecond)
}

// Acquire blocks until a permit is available or ctx is cancelled.
func (l *Limiter) Acquire(ctx context.Context) error {
	return l.inner.Wait(ctx)
}
