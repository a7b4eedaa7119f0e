package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"livecode/internal/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("503 service unavailable")

func newClock() *clock.Manual {
	return clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
}

func TestPolicy_Delay(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: time.Second}
	assert.Equal(t, time.Duration(0), p.Delay(1))
	assert.Equal(t, 4*time.Second, p.Delay(2))
	assert.Equal(t, 8*time.Second, p.Delay(3))

	assert.Equal(t, time.Duration(0), Policy{}.Delay(3))
	assert.Equal(t, time.Millisecond<<maxShift, Policy{BaseDelay: time.Millisecond}.Delay(99))
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	for _, failures := range []int{0, 1, 2} {
		clk := newClock()
		calls := 0
		val, attempts, err := Do(context.Background(), clk, DefaultPolicy(), "analyze", func(ctx context.Context, attempt int) (string, error) {
			calls++
			assert.Equal(t, calls, attempt)
			if calls <= failures {
				return "", errTransient
			}
			return "ok", nil
		})

		require.NoError(t, err)
		assert.Equal(t, "ok", val)
		assert.Equal(t, failures+1, attempts)
		assert.Equal(t, failures+1, calls, "no attempts after success")
	}
}

func TestDo_BackoffSchedule(t *testing.T) {
	clk := newClock()
	_, _, err := Do(context.Background(), clk, Policy{MaxAttempts: 3, BaseDelay: time.Second}, "analyze", func(ctx context.Context, attempt int) (int, error) {
		return 0, errTransient
	})
	require.Error(t, err)
	assert.Equal(t, []time.Duration{4 * time.Second, 8 * time.Second}, clk.Sleeps())
}

func TestDo_Exhausted(t *testing.T) {
	clk := newClock()
	calls := 0
	_, attempts, err := Do(context.Background(), clk, DefaultPolicy(), "analyze", func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 0, errTransient
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, calls)
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	clk := newClock()
	calls := 0
	badKey := errors.New("api key not configured")
	_, attempts, err := Do(context.Background(), clk, DefaultPolicy(), "analyze", func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 0, Permanent(badKey)
	})

	assert.Equal(t, badKey, err)
	assert.False(t, errors.Is(err, ErrExhausted))
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
	assert.Empty(t, clk.Sleeps())
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	clk := newClock()
	calls := 0
	_, _, err := Do(ctx, clk, DefaultPolicy(), "analyze", func(ctx context.Context, attempt int) (int, error) {
		calls++
		cancel()
		return 0, errTransient
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDo_ZeroAttemptsMeansOne(t *testing.T) {
	calls := 0
	_, attempts, err := Do(context.Background(), newClock(), Policy{}, "chat", func(ctx context.Context, attempt int) (int, error) {
		calls++
		return 0, errTransient
	})
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}

func TestIsPermanent(t *testing.T) {
	assert.Nil(t, Permanent(nil))
	assert.True(t, IsPermanent(Permanent(errTransient)))
	assert.False(t, IsPermanent(errTransient))
}

func TestDo_AttemptDeadlineIsTransient(t *testing.T) {
	clk := newClock()
	val, attempts, err := Do(context.Background(), clk, DefaultPolicy(), "analyze", func(ctx context.Context, attempt int) (string, error) {
		if attempt == 1 {
			attemptCtx, cancel := context.WithTimeout(ctx, 0)
			defer cancel()
			<-attemptCtx.Done()
			return "", attemptCtx.Err()
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", val)
	assert.Equal(t, 2, attempts)
}
