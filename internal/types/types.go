// Package types holds the values shared by the analysis pipeline: source
// snapshots, explanation steps and the sequences the animator walks through.
package types

import (
	"fmt"
	"strings"
	"time"
)

// SourceSnapshot is the buffer content captured for one edit.
// It is never mutated after capture.
type SourceSnapshot struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

// IsEmpty reports whether the snapshot carries no code at all.
// Whitespace-only buffers count as empty.
func (s SourceSnapshot) IsEmpty() bool {
	return strings.TrimSpace(s.Code) == ""
}

// Variable is one name/value pair of a step's variable-state snapshot.
type Variable struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Step is one unit of explanatory output describing a hypothesized point
// in program execution.
type Step struct {
	Explanation   string     `json:"explanation"`
	LineHighlight *int       `json:"lineHighlight,omitempty"`
	Variables     []Variable `json:"variables"`
}

// Line returns the highlighted line and whether one is set.
func (s Step) Line() (int, bool) {
	if s.LineHighlight == nil {
		return 0, false
	}
	return *s.LineHighlight, true
}

func (s Step) String() string {
	var b strings.Builder
	if line, ok := s.Line(); ok {
		fmt.Fprintf(&b, "L%d: ", line)
	}
	b.WriteString(s.Explanation)
	if len(s.Variables) > 0 {
		parts := make([]string, 0, len(s.Variables))
		for _, v := range s.Variables {
			parts = append(parts, v.Name+"="+v.Value)
		}
		b.WriteString(" [")
		b.WriteString(strings.Join(parts, ", "))
		b.WriteString("]")
	}
	return b.String()
}

// IntPtr is a helper for building steps with a highlighted line.
func IntPtr(v int) *int { return &v }

// StepSequence is the ordered set of steps produced for one generation.
type StepSequence struct {
	Generation uint64 `json:"generation"`
	Steps      []Step `json:"steps"`
}

// Len returns the number of steps.
func (s StepSequence) Len() int { return len(s.Steps) }

// IsEmpty reports whether there is nothing to animate.
func (s StepSequence) IsEmpty() bool { return len(s.Steps) == 0 }

// AnalysisRequest is created when the quiescence window elapses and lives
// until its outcome is applied or discarded.
type AnalysisRequest struct {
	Generation uint64
	Snapshot   SourceSnapshot
	Attempt    int
}

// Outcome describes how an analysis request was resolved.
type Outcome string

const (
	OutcomeAccepted    Outcome = "accepted"
	OutcomeSuperseded  Outcome = "superseded"
	OutcomeExhausted   Outcome = "exhausted"
	OutcomeUnparseable Outcome = "unparseable"
	OutcomeCleared     Outcome = "cleared"
)

// AnalysisTrace is the record kept for one resolved analysis request.
type AnalysisTrace struct {
	SessionID  string
	Generation uint64
	Snapshot   SourceSnapshot
	Attempts   int
	Steps      int
	Outcome    Outcome
	Duration   time.Duration
}
