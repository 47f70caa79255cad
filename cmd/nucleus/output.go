package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"omibyte.io/nucleus/scenario"
	"omibyte.io/nucleus/trace"
)

var (
	headerColor = color.New(color.Bold)
	taskColors  = []*color.Color{
		color.New(color.FgCyan),
		color.New(color.FgMagenta),
		color.New(color.FgYellow),
		color.New(color.FgGreen),
		color.New(color.FgBlue),
	}
	fairColor    = color.New(color.FgGreen, color.Bold)
	unfairColor  = color.New(color.FgRed, color.Bold)
	blockedColor = color.New(color.Faint)
)

func taskColor(index int) *color.Color {
	return taskColors[index%len(taskColors)]
}

// pad fills s to width display columns.
func pad(s string, width int) string {
	return runewidth.FillRight(s, width)
}

func nameWidth(result scenario.Result) int {
	width := runewidth.StringWidth("task")
	for _, task := range result.Tasks {
		width = max(width, runewidth.StringWidth(task.Name))
	}
	return width
}

func printResult(w io.Writer, result scenario.Result) {
	headerColor.Fprintf(w, "%s: %s after %d cycles, %d ticks, %d exceptions\n", result.Name, result.State, result.Cycles, result.Ticks, result.Exceptions)

	width := nameWidth(result)
	headerColor.Fprintf(w, "  %s  %-5s  %-10s  %-10s\n", pad("task", width), "index", "stack", "top")
	for _, task := range result.Tasks {
		line := fmt.Sprintf("  %s  %-5d  0x%08X  0x%08X", pad(task.Name, width), task.Index, task.StackBase, task.StackTop)
		if task.Blocked {
			line += "  " + blockedColor.Sprint("blocked")
		}
		taskColor(task.Index).Fprintln(w, line)
	}

	names := make([]string, len(result.Sequence))
	for i, index := range result.Sequence {
		names[i] = taskColor(index).Sprint(result.TaskName(index))
	}
	fmt.Fprintf(w, "  sequence: %s\n", strings.Join(names, " → "))
}

func printReport(w io.Writer, name string, report trace.Report) {
	headerColor.Fprintf(w, "%s: %d dispatches\n", name, report.Events)

	width := runewidth.StringWidth("task")
	headerColor.Fprintf(w, "  %s  %-10s  %-6s\n", pad("task", width), "dispatches", "share")
	for _, task := range report.Tasks {
		taskColor(task).Fprintf(w, "  %s  %-10d  %5.1f%%\n", pad(fmt.Sprint(task), width), report.Dispatches[task], report.Shares[task]*100)
	}

	fmt.Fprintf(w, "  slice: mean %.1f cycles, stddev %.1f\n", report.MeanSlice, report.StdDevSlice)
	for _, t := range report.Transitions {
		fmt.Fprintf(w, "  %d → %d  ×%d\n", t.From, t.To, t.Count)
	}
	fmt.Fprintf(w, "  components: %v\n", report.Components)
	if report.Fair {
		fairColor.Fprintln(w, "  fair")
	} else {
		unfairColor.Fprintln(w, "  unfair: some tasks are never rescheduled")
	}
}
