package stepper

import "github.com/stepflow/stepflow/pkg/workflow"

// std is the process-wide default Tracker. One workflow per process is
// the normal mode; the renderer has to observe every task no matter
// where it was wrapped, so they all share this instance unless a caller
// constructs its own.
var std = New()

// Default returns the shared default Tracker.
func Default() *Tracker {
	return std
}

// Step wraps fn on the default Tracker. See Tracker.Step.
func Step(phase, name string, order float64, fn workflow.Func) workflow.Func {
	return std.Step(phase, name, order, fn)
}

// StartWorkflow starts the default Tracker's live display.
func StartWorkflow() {
	std.StartWorkflow()
}

// PrintSummary prints the default Tracker's summary to stdout.
func PrintSummary() {
	std.PrintSummary()
}

// Reset clears the default Tracker.
func Reset() {
	std.Reset()
}
