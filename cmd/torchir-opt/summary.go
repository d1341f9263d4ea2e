package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/go-torchir/pkg/torchir"
)

// OperationCounts of a module.
type OperationCounts struct {
	Functions, Operations, DtypeCalculations, ShapeCalculations int
}

// CountOperations counts the operations of module, including nested ones.
func CountOperations(module *torchir.Module) OperationCounts {
	counts := OperationCounts{Functions: len(module.Functions())}
	module.Walk(func(op *torchir.Operation) torchir.WalkResult {
		counts.Operations++
		switch op.Name {
		case torchir.OpDtypeCalculate:
			counts.DtypeCalculations++
		case torchir.OpShapeCalculate:
			counts.ShapeCalculations++
		}
		return torchir.WalkAdvance
	})
	return counts
}

// Summary of a run of torchir-opt.
type Summary struct {
	Passes        []string
	Before, After OperationCounts
	Bytes         int
	Elapsed       time.Duration
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle = lipgloss.NewStyle().Width(20).Foreground(lipgloss.Color("8"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// Print the summary to w.
func (s Summary) Print(w io.Writer) {
	var lines []string
	row := func(label string, before, after int) {
		value := humanize.Comma(int64(after))
		if before != after {
			value = fmt.Sprintf("%s → %s", humanize.Comma(int64(before)), value)
		}
		lines = append(lines, labelStyle.Render(label)+value)
	}
	lines = append(lines, titleStyle.Render(strings.Join(s.Passes, ", ")))
	row("functions", s.Before.Functions, s.After.Functions)
	row("operations", s.Before.Operations, s.After.Operations)
	row("dtype calculations", s.Before.DtypeCalculations, s.After.DtypeCalculations)
	row("shape calculations", s.Before.ShapeCalculations, s.After.ShapeCalculations)
	lines = append(lines, labelStyle.Render("output")+humanize.Bytes(uint64(s.Bytes)))
	lines = append(lines, labelStyle.Render("elapsed")+s.Elapsed.Round(time.Microsecond).String())
	_, _ = fmt.Fprintln(w, boxStyle.Render(strings.Join(lines, "\n")))
}
