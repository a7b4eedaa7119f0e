package livecode

import (
	"sync/atomic"

	"livecode/internal/types"
)

// SequenceStore holds the active step sequence. Writes happen on the session
// timeline; Current may be called from any goroutine.
type SequenceStore struct {
	guard  *Guard
	anim   *Animator
	active atomic.Pointer[types.StepSequence]
}

// NewSequenceStore creates an empty store.
func NewSequenceStore(guard *Guard, anim *Animator) *SequenceStore {
	s := &SequenceStore{guard: guard, anim: anim}
	s.active.Store(&types.StepSequence{})
	return s
}

// Replace installs steps for gen if the guard accepts it, resetting the
// animator. It reports whether the sequence was applied.
func (s *SequenceStore) Replace(gen uint64, steps []types.Step) bool {
	if !s.guard.Accept(gen) {
		return false
	}
	copied := make([]types.Step, len(steps))
	copy(copied, steps)
	s.active.Store(&types.StepSequence{Generation: gen, Steps: copied})
	s.anim.Reset(len(copied))
	return true
}

// Clear empties the store unconditionally. It issues and accepts a fresh
// generation so any request still in flight is superseded.
func (s *SequenceStore) Clear() uint64 {
	gen := s.guard.Issue()
	s.guard.Accept(gen)
	s.active.Store(&types.StepSequence{Generation: gen})
	s.anim.Reset(0)
	return gen
}

// Current returns the active sequence.
func (s *SequenceStore) Current() types.StepSequence {
	return *s.active.Load()
}
