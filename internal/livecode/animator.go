package livecode

// State is the animator state.
type State int

const (
	Idle      State = iota // no active sequence
	Animating              // sequence present, ticking
	Paused                 // sequence present, execution or analysis in progress
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Animating:
		return "animating"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

// Animator walks an index cyclically through the active sequence. Tick is
// the only writer of the index apart from Reset.
type Animator struct {
	gate     ExecutionStatus
	length   int
	index    int
	paused   bool
	inFlight bool
}

// NewAnimator creates an idle animator gated by gate.
func NewAnimator(gate ExecutionStatus) *Animator {
	if gate == nil {
		gate = never{}
	}
	return &Animator{gate: gate}
}

// Reset starts over on a sequence of the given length: index 0, in-flight
// lifted, paused following the execution status.
func (a *Animator) Reset(length int) {
	a.length = length
	a.index = 0
	a.inFlight = false
	a.paused = a.gate.Executing()
}

// SetInFlight pauses (or releases) the animator for an outstanding request.
func (a *Animator) SetInFlight(inFlight bool) {
	a.inFlight = inFlight
	a.sync()
}

// Tick re-reads the gate and advances the index if animating. It reports
// whether the index moved.
func (a *Animator) Tick() bool {
	a.sync()
	if a.State() != Animating {
		return false
	}
	a.index = (a.index + 1) % a.length
	return true
}

func (a *Animator) sync() {
	a.paused = a.inFlight || a.gate.Executing()
}

// State returns the current state.
func (a *Animator) State() State {
	switch {
	case a.length == 0:
		return Idle
	case a.paused:
		return Paused
	default:
		return Animating
	}
}

// Index returns the current step index. It is meaningless while Idle.
func (a *Animator) Index() int { return a.index }
