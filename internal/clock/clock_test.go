package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestManual_FiresInDeadlineOrder(t *testing.T) {
	m := NewManual(epoch)
	var fired []string
	m.AfterFunc(300*time.Millisecond, func() { fired = append(fired, "c") })
	m.AfterFunc(100*time.Millisecond, func() { fired = append(fired, "a") })
	m.AfterFunc(200*time.Millisecond, func() { fired = append(fired, "b") })

	m.Advance(250 * time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, fired)
	assert.Equal(t, epoch.Add(250*time.Millisecond), m.Now())

	m.Advance(50 * time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c"}, fired)
	assert.Equal(t, 0, m.Pending())
}

func TestManual_NowDuringCallbackIsDeadline(t *testing.T) {
	m := NewManual(epoch)
	var seen time.Time
	m.AfterFunc(time.Second, func() { seen = m.Now() })
	m.Advance(5 * time.Second)
	assert.Equal(t, epoch.Add(time.Second), seen)
	assert.Equal(t, epoch.Add(5*time.Second), m.Now())
}

func TestManual_Stop(t *testing.T) {
	m := NewManual(epoch)
	called := false
	timer := m.AfterFunc(time.Second, func() { called = true })
	require.True(t, timer.Stop())
	assert.False(t, timer.Stop())
	m.Advance(2 * time.Second)
	assert.False(t, called)
}

func TestManual_RescheduleFromCallback(t *testing.T) {
	m := NewManual(epoch)
	count := 0
	var tick func()
	tick = func() {
		count++
		m.AfterFunc(time.Second, tick)
	}
	m.AfterFunc(time.Second, tick)

	m.Advance(3 * time.Second)
	assert.Equal(t, 3, count)
	assert.Equal(t, 1, m.Pending())
}

func TestManual_SleepAdvances(t *testing.T) {
	m := NewManual(epoch)
	fired := false
	m.AfterFunc(2*time.Second, func() { fired = true })

	require.NoError(t, m.Sleep(context.Background(), 4*time.Second))
	assert.True(t, fired)
	assert.Equal(t, []time.Duration{4 * time.Second}, m.Sleeps())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Sleep(ctx, time.Second), context.Canceled)
}

func TestReal_SleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Real().Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, Real().Sleep(context.Background(), time.Millisecond))
}
