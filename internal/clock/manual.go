package clock

import (
	"context"
	"sync"
	"time"
)

// Manual is a Clock that only moves when told to. Timers fire synchronously
// on the goroutine calling Advance, in deadline order. Sleep records the
// requested duration and advances the clock by it.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	seq    uint64
	timers []*manualTimer
	sleeps []time.Duration
}

type manualTimer struct {
	m    *Manual
	at   time.Time
	seq  uint64
	f    func()
	done bool
}

// NewManual returns a manual clock starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	if d < 0 {
		d = 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{m: m, at: m.now.Add(d), seq: m.seq, f: f}
	m.timers = append(m.timers, t)
	return t
}

func (m *Manual) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.sleeps = append(m.sleeps, d)
	m.mu.Unlock()
	m.Advance(d)
	return ctx.Err()
}

// Advance moves the clock forward by d, firing every timer that falls due,
// including timers scheduled by callbacks fired along the way.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		idx := -1
		for i, t := range m.timers {
			if t.at.After(target) {
				continue
			}
			if idx < 0 || t.at.Before(m.timers[idx].at) ||
				(t.at.Equal(m.timers[idx].at) && t.seq < m.timers[idx].seq) {
				idx = i
			}
		}
		if idx < 0 {
			if target.After(m.now) {
				m.now = target
			}
			m.mu.Unlock()
			return
		}
		t := m.timers[idx]
		m.timers = append(m.timers[:idx], m.timers[idx+1:]...)
		t.done = true
		if t.at.After(m.now) {
			m.now = t.at
		}
		m.mu.Unlock()

		t.f()
	}
}

// Pending returns the number of timers that have not fired or been stopped.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// Sleeps returns every duration passed to Sleep, in call order.
func (m *Manual) Sleeps() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]time.Duration, len(m.sleeps))
	copy(out, m.sleeps)
	return out
}

func (t *manualTimer) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	for i, other := range t.m.timers {
		if other == t {
			t.m.timers = append(t.m.timers[:i], t.m.timers[i+1:]...)
			break
		}
	}
	return true
}
