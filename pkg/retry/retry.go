// Package retry implements bounded retries with exponential backoff and
// jitter. It exists for two callers: contended ledger writes, where an
// optimistic version check may lose the race, and best-effort cache updates.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// markedError classifies an error for the retry loop. retryable=true forces
// another attempt, retryable=false stops immediately regardless of budget.
type markedError struct {
	err       error
	retryable bool
}

func (e *markedError) Error() string { return e.err.Error() }
func (e *markedError) Unwrap() error { return e.err }

// Retryable marks err as worth another attempt.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &markedError{err: err, retryable: true}
}

// Permanent marks err as final: the retry loop returns it unwrapped.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &markedError{err: err, retryable: false}
}

func classify(err error) (marked, retryable bool) {
	var m *markedError
	if errors.As(err, &m) {
		return true, m.retryable
	}
	return false, false
}

// Retrier runs an operation until it succeeds, is marked permanent, or the
// attempt budget runs out. Zero value is not usable; construct with New.
type Retrier struct {
	maxAttempts  int
	initialDelay time.Duration
	maxDelay     time.Duration
	multiplier   float64
	jitter       float64
}

// Option mutates a Retrier during construction.
type Option func(*Retrier)

// WithMaxAttempts sets the total attempt budget, first try included.
func WithMaxAttempts(n int) Option {
	return func(r *Retrier) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithInitialDelay sets the pause before the second attempt.
func WithInitialDelay(d time.Duration) Option {
	return func(r *Retrier) {
		if d > 0 {
			r.initialDelay = d
		}
	}
}

// WithMaxDelay caps the backoff growth.
func WithMaxDelay(d time.Duration) Option {
	return func(r *Retrier) {
		if d > 0 {
			r.maxDelay = d
		}
	}
}

// WithMultiplier sets the backoff growth factor. Values below 1 are ignored.
func WithMultiplier(m float64) Option {
	return func(r *Retrier) {
		if m >= 1.0 {
			r.multiplier = m
		}
	}
}

// WithJitter sets the jitter fraction in [0, 1]. 0.5 means each delay is
// randomized within +/-50% of its computed value.
func WithJitter(j float64) Option {
	return func(r *Retrier) {
		if j >= 0 && j <= 1.0 {
			r.jitter = j
		}
	}
}

// New builds a Retrier. Without options: 3 attempts, 100ms initial delay,
// doubling up to 30s, 10% jitter.
func New(opts ...Option) *Retrier {
	r := &Retrier{
		maxAttempts:  3,
		initialDelay: 100 * time.Millisecond,
		maxDelay:     30 * time.Second,
		multiplier:   2.0,
		jitter:       0.1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Do runs op until success, a permanent error, an unmarked error, context
// cancellation, or attempt exhaustion. Marked errors come back unwrapped.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		marked, retryable := classify(err)
		if marked && !retryable {
			return errors.Unwrap(err)
		}
		if !marked {
			// Unmarked errors are treated as final. Callers opt into
			// retries explicitly via Retryable.
			return err
		}
		if attempt >= r.maxAttempts {
			return errors.Unwrap(err)
		}

		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(r.backoff(attempt)):
		}
	}
}

// backoff returns the jittered delay after the given attempt number.
func (r *Retrier) backoff(attempt int) time.Duration {
	d := float64(r.initialDelay) * math.Pow(r.multiplier, float64(attempt-1))
	if d > float64(r.maxDelay) {
		d = float64(r.maxDelay)
	}
	if r.jitter > 0 {
		d += d * r.jitter * (rand.Float64()*2 - 1)
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// LedgerRetrier is tuned for optimistic-lock conflicts on ledger writes.
// Conflicts resolve in microseconds, so delays are tiny and heavily jittered
// to spread competing writers apart.
func LedgerRetrier() *Retrier {
	return New(
		WithMaxAttempts(5),
		WithInitialDelay(5*time.Millisecond),
		WithMaxDelay(100*time.Millisecond),
		WithJitter(0.5),
	)
}

// CacheRetrier allows a single cheap retry for ranking cache updates. The
// cache is best-effort and rebuilt on a schedule, so giving up early is fine.
func CacheRetrier() *Retrier {
	return New(
		WithMaxAttempts(2),
		WithInitialDelay(20*time.Millisecond),
		WithMaxDelay(200*time.Millisecond),
		WithMultiplier(1.5),
		WithJitter(0.2),
	)
}
