// Package summary renders the end-of-workflow report: every phase and
// task with its terminal glyph, the failure tally, and the enumerated
// failure list.
package summary

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/stepflow/stepflow/pkg/workflow"
)

var (
	phaseStyle   = color.New(color.FgCyan, color.Bold)
	successStyle = color.New(color.FgGreen)
	failureStyle = color.New(color.FgRed)
	pendingStyle = color.New(color.FgWhite, color.Faint)
	headerStyle  = color.New(color.FgRed, color.Bold)
)

// failedTask is one entry in the failure list.
type failedTask struct {
	phase   string
	name    string
	message string
}

// Write renders the summary for the given snapshot to w.
//
// Counting policy: the "X of Y tasks failed" line counts only tasks that
// reached a terminal state. Tasks registered but never invoked are shown
// in their phase with a dim "-" glyph and tallied separately as
// "N not run"; they are neither failures nor successes.
func Write(w io.Writer, phases []workflow.PhaseSnapshot) {
	var (
		total   int
		failed  []failedTask
		notRun  int
		running int
	)

	fmt.Fprintln(w)
	for _, phase := range phases {
		if len(phase.Tasks) == 0 {
			continue
		}
		phaseStyle.Fprintln(w, strings.ToUpper(phase.Name))
		for _, task := range phase.Tasks {
			writeTaskLine(w, task)
			switch task.State {
			case workflow.StateSucceeded:
				total++
			case workflow.StateFailed:
				total++
				failed = append(failed, failedTask{
					phase:   phase.Name,
					name:    task.Name,
					message: task.Message,
				})
			case workflow.StateRunning:
				running++
			default:
				notRun++
			}
		}
		fmt.Fprintln(w)
	}

	if total > 0 || notRun > 0 || running > 0 {
		fmt.Fprintf(w, "%d of %d tasks failed", len(failed), total)
		if notRun > 0 {
			fmt.Fprintf(w, " (%d not run)", notRun)
		}
		fmt.Fprintln(w)
	}

	if len(failed) > 0 {
		headerStyle.Fprintln(w, "FAILED TASKS")
		for _, f := range failed {
			failureStyle.Fprint(w, "✗ ")
			phaseStyle.Fprintf(w, "%s: ", f.phase)
			fmt.Fprintf(w, "%s - %s\n", f.name, f.message)
		}
	}
}

// writeTaskLine prints one task with its glyph and, when the task has
// completed, its elapsed time.
func writeTaskLine(w io.Writer, task workflow.TaskSnapshot) {
	switch task.State {
	case workflow.StateSucceeded:
		successStyle.Fprint(w, "  ✓ ")
		fmt.Fprint(w, task.Name)
	case workflow.StateFailed:
		failureStyle.Fprint(w, "  ✗ ")
		fmt.Fprint(w, task.Name)
	default:
		pendingStyle.Fprintf(w, "  - %s", task.Name)
	}
	if d := task.Duration(); d > 0 {
		pendingStyle.Fprintf(w, " (%s)", d.Round(time.Millisecond))
	}
	fmt.Fprintln(w)
}

// FailedCount returns the number of tasks in the snapshot whose terminal
// state is failed.
func FailedCount(phases []workflow.PhaseSnapshot) int {
	var n int
	for _, phase := range phases {
		for _, task := range phase.Tasks {
			if task.State == workflow.StateFailed {
				n++
			}
		}
	}
	return n
}
