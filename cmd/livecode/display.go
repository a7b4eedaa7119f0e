package main

import (
	"fmt"
	"io"
	"strings"

	"livecode/internal/livecode"
	"livecode/internal/types"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	stepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ADE80"))
	lineStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FACC15"))
	varStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#777777")).Italic(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F87171")).Bold(true)
)

// renderStep formats one step with its position.
func renderStep(step types.Step, index, total int) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("[%d/%d]", index+1, total)))
	b.WriteString(" ")
	if line, ok := step.Line(); ok {
		b.WriteString(lineStyle.Render(fmt.Sprintf("line %d", line)))
		b.WriteString(" ")
	}
	b.WriteString(stepStyle.Render(step.Explanation))
	for _, v := range step.Variables {
		b.WriteString("\n    ")
		b.WriteString(varStyle.Render(v.Name + " = " + v.Value))
	}
	return b.String()
}

// renderView formats the session view for a terminal.
func renderView(v livecode.View) string {
	switch {
	case v.Unavailable:
		return warningStyle.Render(v.Message)
	case v.State == livecode.Idle && v.Analyzing:
		return mutedStyle.Render("analyzing...")
	case v.State == livecode.Idle:
		return mutedStyle.Render("no steps to show")
	}

	step, ok := v.Step()
	if !ok {
		return ""
	}
	out := renderStep(step, v.Index, v.Sequence.Len())
	switch {
	case v.Executing:
		out += "  " + mutedStyle.Render("(paused: running)")
	case v.Analyzing:
		out += "  " + mutedStyle.Render("(paused: analyzing)")
	}
	return out
}

// viewPrinter prints a view only when what it shows changes.
type viewPrinter struct {
	w    io.Writer
	last string
}

func (p *viewPrinter) print(v livecode.View) {
	out := renderView(v)
	if out == "" || out == p.last {
		return
	}
	p.last = out
	fmt.Fprintln(p.w, out)
}
