// Package clock abstracts time so timers and backoff delays can be driven
// deterministically in tests.
package clock

import (
	"context"
	"time"
)

// Clock is the source of time and timers for the analysis pipeline.
type Clock interface {
	Now() time.Time
	// AfterFunc calls f in its own goroutine (real clock) or inline during
	// Advance (manual clock) once d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer
	// Sleep blocks for d or until ctx is done, whichever comes first.
	Sleep(ctx context.Context, d time.Duration) error
}

// Timer is a pending AfterFunc call.
type Timer interface {
	// Stop prevents the call from firing. It returns false if the call
	// already fired or was already stopped.
	Stop() bool
}

type realClock struct{}

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
