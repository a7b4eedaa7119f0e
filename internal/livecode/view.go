package livecode

import "livecode/internal/types"

// UnavailableMessage is shown when analysis failed and nothing was displayed
// before.
const UnavailableMessage = "Analysis unavailable. The reasoning service could not be reached."

// View is an immutable snapshot of what the display should show.
type View struct {
	SessionID string
	Sequence  types.StepSequence
	Index     int
	State     State
	Executing bool
	Analyzing bool
	// Unavailable is set after exhausted retries when no sequence was
	// active. Message carries the text to show in its place.
	Unavailable bool
	Message     string
}

// Step returns the step under the animation pointer.
func (v View) Step() (types.Step, bool) {
	if v.State == Idle || v.Index < 0 || v.Index >= v.Sequence.Len() {
		return types.Step{}, false
	}
	return v.Sequence.Steps[v.Index], true
}
