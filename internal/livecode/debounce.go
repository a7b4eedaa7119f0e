package livecode

import (
	"time"

	"livecode/internal/clock"
	"livecode/internal/types"
)

// Debouncer emits the last snapshot once no edit has arrived for the
// quiescence window. It is driven from the session timeline only.
type Debouncer struct {
	clk    clock.Clock
	window time.Duration
	post   func(func())
	fire   func(types.SourceSnapshot)

	seq     uint64
	timer   clock.Timer
	pending *types.SourceSnapshot
}

// NewDebouncer creates a debouncer. Timer callbacks are routed through post
// so fire always runs on the timeline.
func NewDebouncer(clk clock.Clock, window time.Duration, post func(func()), fire func(types.SourceSnapshot)) *Debouncer {
	return &Debouncer{clk: clk, window: window, post: post, fire: fire}
}

// Edit records snapshot and restarts the window.
func (d *Debouncer) Edit(snapshot types.SourceSnapshot) {
	d.Cancel()
	d.seq++
	seq := d.seq
	d.pending = &snapshot
	d.timer = d.clk.AfterFunc(d.window, func() {
		d.post(func() { d.expire(seq) })
	})
}

// Cancel drops the pending snapshot. It reports whether one was pending.
func (d *Debouncer) Cancel() bool {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	had := d.pending != nil
	d.pending = nil
	return had
}

// Pending reports whether a snapshot is waiting for the window to elapse.
func (d *Debouncer) Pending() bool {
	return d.pending != nil
}

// expire fires for the edit numbered seq. A timer that already fired before
// Stop could take effect carries an old seq and is ignored.
func (d *Debouncer) expire(seq uint64) {
	if seq != d.seq || d.pending == nil {
		return
	}
	snapshot := *d.pending
	d.pending = nil
	d.timer = nil
	d.fire(snapshot)
}
