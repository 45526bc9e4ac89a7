// Package stepper is the public API of stepflow: wrap task functions
// with Step to have them tracked, grouped by phase, and rendered live,
// then call PrintSummary for the grouped, sorted, failure-annotated
// report.
//
// A Tracker owns the task registry and the live display for one running
// workflow. The package-level functions delegate to a shared default
// Tracker, which covers the common case of one workflow per process;
// construct Trackers explicitly when tests or embedding need isolation.
package stepper

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/stepflow/stepflow/internal/registry"
	"github.com/stepflow/stepflow/internal/summary"
	"github.com/stepflow/stepflow/internal/tui"
	"github.com/stepflow/stepflow/pkg/workflow"
)

// Renderer is the live display contract. The Tracker starts it when the
// workflow begins and stops it before printing the summary or on reset.
type Renderer interface {
	Start()
	Stop()
}

// Tracker coordinates the registry, the execution wrapper, and the live
// renderer for one workflow.
type Tracker struct {
	reg *registry.Registry
	out io.Writer

	mu        sync.Mutex
	renderer  Renderer
	autoStart bool

	// newRenderer builds the live display on first use.
	newRenderer func(tui.SnapshotFunc) Renderer
}

// Option configures a Tracker. Use With* functions to create Options.
type Option func(*Tracker)

// WithOutput sets the writer the summary is printed to.
func WithOutput(w io.Writer) Option {
	return func(t *Tracker) { t.out = w }
}

// WithRefreshInterval sets the live display redraw interval.
func WithRefreshInterval(d time.Duration) Option {
	return func(t *Tracker) {
		t.newRenderer = func(snap tui.SnapshotFunc) Renderer {
			return tui.NewLive(snap, d)
		}
	}
}

// WithRenderer injects a renderer, replacing the terminal display.
func WithRenderer(r Renderer) Option {
	return func(t *Tracker) {
		t.newRenderer = func(tui.SnapshotFunc) Renderer { return r }
	}
}

// WithAutoStart controls whether the first task invocation starts the
// live display implicitly. Enabled by default; disable it when the
// caller drives StartWorkflow explicitly or no terminal is attached.
func WithAutoStart(enabled bool) Option {
	return func(t *Tracker) { t.autoStart = enabled }
}

// DefaultRefreshInterval is the live display redraw interval used when
// no WithRefreshInterval option is given.
const DefaultRefreshInterval = 100 * time.Millisecond

// New creates a Tracker with an empty registry.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		reg:       registry.New(),
		out:       os.Stdout,
		autoStart: true,
		newRenderer: func(snap tui.SnapshotFunc) Renderer {
			return tui.NewLive(snap, DefaultRefreshInterval)
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Step registers a task slot under (phase, name) with the given display
// order and returns fn wrapped with execution tracking. Registration
// happens once, here; every call of the returned function records a
// begin/complete cycle. The same slot may be invoked any number of
// times, in any order relative to other slots; the latest invocation's
// record wins.
func (t *Tracker) Step(phase, name string, order float64, fn workflow.Func) workflow.Func {
	t.reg.Register(phase, name, order)

	return func(ctx context.Context) workflow.Outcome {
		if t.autoStart {
			t.StartWorkflow()
		}

		t.reg.Begin(phase, name)
		outcome := t.invoke(ctx, name, fn)
		t.reg.Complete(phase, name, outcome)
		return outcome
	}
}

// invoke runs fn and normalizes whatever happens into an Outcome: a
// returned Outcome passes through, a panic becomes a failure with the
// panic value as message, and a nil fn is the fail-safe malformed case.
// The caller records the outcome after invoke returns, so a failure is
// never lost even when the task panics.
func (t *Tracker) invoke(ctx context.Context, name string, fn workflow.Func) (outcome workflow.Outcome) {
	if fn == nil {
		return workflow.Failedf("%s returned no result", name)
	}

	defer func() {
		if r := recover(); r != nil {
			outcome = workflow.Failedf("%v", r)
		}
	}()

	outcome = fn(ctx)
	if !outcome.Success && outcome.Message == "" {
		outcome.Message = fmt.Sprintf("%s failed", name)
	}
	return outcome
}

// StartWorkflow starts the live display against current registry state.
// Safe to call repeatedly; only the first call starts the renderer.
func (t *Tracker) StartWorkflow() {
	t.mu.Lock()
	if t.renderer == nil {
		t.renderer = t.newRenderer(t.reg.Snapshot)
	}
	r := t.renderer
	t.mu.Unlock()

	r.Start()
}

// PrintSummary stops the live display if active, then writes the
// grouped, sorted, failure-annotated summary.
func (t *Tracker) PrintSummary() {
	t.stopRenderer()
	summary.Write(t.out, t.reg.Snapshot())
}

// Reset stops the live display and clears all phases, tasks, and
// execution records, returning the Tracker to its initial state.
func (t *Tracker) Reset() {
	t.stopRenderer()
	t.reg.Reset()
}

// Snapshot returns a consistent copy of the current task state.
func (t *Tracker) Snapshot() []workflow.PhaseSnapshot {
	return t.reg.Snapshot()
}

// FailedCount returns the number of tasks currently in the failed state.
func (t *Tracker) FailedCount() int {
	return summary.FailedCount(t.reg.Snapshot())
}

// stopRenderer halts the live display and discards it, so a later
// StartWorkflow builds a fresh one.
func (t *Tracker) stopRenderer() {
	t.mu.Lock()
	r := t.renderer
	t.renderer = nil
	t.mu.Unlock()

	if r != nil {
		r.Stop()
	}
}
