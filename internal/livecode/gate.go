package livecode

import "sync/atomic"

// ExecutionStatus reports whether the user's code is currently running.
// The session only ever reads it, once per tick.
type ExecutionStatus interface {
	Executing() bool
}

// StatusFlag is the shared execution status written by the run flow.
// The zero value reports not executing.
type StatusFlag struct {
	executing atomic.Bool
}

// Set records whether code is executing.
func (f *StatusFlag) Set(executing bool) {
	f.executing.Store(executing)
}

// Executing implements ExecutionStatus.
func (f *StatusFlag) Executing() bool {
	return f.executing.Load()
}

type never struct{}

func (never) Executing() bool { return false }
