// Package retry runs one logical call with bounded exponential backoff.
// Retry decisions stay inside Do; callers only see the final value or a
// terminal error.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"livecode/internal/clock"
	"livecode/internal/logging"
)

// ErrExhausted indicates every attempt failed.
var ErrExhausted = errors.New("retries exhausted")

// maxShift caps the backoff exponent so the delay cannot overflow.
const maxShift = 20

// Policy configures retry behavior.
type Policy struct {
	MaxAttempts int           // Total attempts including the first
	BaseDelay   time.Duration // Backoff unit
}

// DefaultPolicy returns the analysis defaults: 3 attempts, 1s base.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Second,
	}
}

// Delay returns the wait before the given 1-indexed attempt.
// Attempt 1 is immediate; attempt k waits BaseDelay * 2^k.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt <= 1 || p.BaseDelay <= 0 {
		return 0
	}
	shift := attempt
	if shift > maxShift {
		shift = maxShift
	}
	return p.BaseDelay * time.Duration(1<<uint(shift))
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Do returns the wrapped error
// unchanged.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Op is one attempt of a retried call. attempt is 1-indexed.
type Op[T any] func(ctx context.Context, attempt int) (T, error)

// Do runs op until it succeeds, returns a permanent error, the context ends,
// or the policy's attempts are used up. It returns the value, the number of
// attempts issued, and the terminal error if any.
func Do[T any](ctx context.Context, clk clock.Clock, policy Policy, operation string, op Op[T]) (T, int, error) {
	var zero T
	var lastErr error
	maxAttempts := policy.attempts()

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if delay := policy.Delay(attempt); delay > 0 {
			logging.APIDebug("%s: waiting %v before attempt %d/%d", operation, delay, attempt, maxAttempts)
			if err := clk.Sleep(ctx, delay); err != nil {
				return zero, attempt - 1, err
			}
		}
		if err := ctx.Err(); err != nil {
			return zero, attempt - 1, err
		}

		val, err := op(ctx, attempt)
		if err == nil {
			if attempt > 1 {
				logging.API("%s: succeeded on attempt %d/%d", operation, attempt, maxAttempts)
			}
			return val, attempt, nil
		}

		var p *permanentError
		if errors.As(err, &p) {
			return zero, attempt, p.err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, attempt, ctxErr
		}

		lastErr = err
		logging.Get(logging.CategoryAPI).With("attempt", attempt).Warn("%s: attempt %d/%d failed: %v", operation, attempt, maxAttempts, err)
	}

	return zero, maxAttempts, fmt.Errorf("%s: %w after %d attempts: %w", operation, ErrExhausted, maxAttempts, lastErr)
}
