// Package runner executes manifest workflows through a Tracker: every
// manifest task is bound with the tracker's Step wrapper, then invoked
// by a bounded worker pool. The pool size only controls parallelism;
// display order comes from the manifest's order values, never from
// completion order.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/stepflow/stepflow/internal/exec"
	"github.com/stepflow/stepflow/internal/manifest"
	"github.com/stepflow/stepflow/pkg/stepper"
	"github.com/stepflow/stepflow/pkg/workflow"
)

// Result summarizes one workflow run.
type Result struct {
	// Total is the number of tasks invoked.
	Total int
	// Failed is the number of tasks that failed, including those
	// marked allow_failure.
	Failed int
	// HardFailed is the number of failures not covered by
	// allow_failure; a non-zero value should fail the run.
	HardFailed int
}

// boundTask is one manifest task bound to its tracked function.
type boundTask struct {
	fn           workflow.Func
	allowFailure bool
}

// Runner executes manifests against a Tracker.
type Runner struct {
	tracker *stepper.Tracker
	cmd     exec.CommandRunner
	shell   string
	workers int
}

// New creates a Runner. workers caps parallel task execution; values
// below 1 mean sequential.
func New(tracker *stepper.Tracker, cmd exec.CommandRunner, shell string, workers int) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		tracker: tracker,
		cmd:     cmd,
		shell:   shell,
		workers: workers,
	}
}

// Run binds every manifest task, then executes them all. Binding happens
// up front so the full task list is visible in the live display before
// anything runs. The returned Result reflects this run's outcomes; the
// error is non-nil only when the context was canceled.
func (r *Runner) Run(ctx context.Context, m *manifest.Manifest) (Result, error) {
	tasks := r.bind(m)

	var (
		mu  sync.Mutex
		res Result
		wg  sync.WaitGroup
	)

	sem := make(chan struct{}, r.workers)
	for _, task := range tasks {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(task boundTask) {
			defer wg.Done()
			defer func() { <-sem }()

			outcome := task.fn(ctx)

			mu.Lock()
			res.Total++
			if !outcome.Success {
				res.Failed++
				if !task.allowFailure {
					res.HardFailed++
				}
			}
			mu.Unlock()
		}(task)
	}
	wg.Wait()

	return res, ctx.Err()
}

// bind wraps every manifest task with the tracker's Step wrapper, in
// manifest order so order-value ties keep their listed sequence.
func (r *Runner) bind(m *manifest.Manifest) []boundTask {
	var tasks []boundTask
	for _, phase := range m.Phases {
		for _, task := range phase.Tasks {
			tasks = append(tasks, boundTask{
				fn:           r.tracker.Step(phase.Name, task.Name, task.Order, r.taskFunc(task)),
				allowFailure: task.AllowFailure,
			})
		}
	}
	return tasks
}

// taskFunc builds the workflow function running one shell command. A
// failing command produces a message with the exit error and the last
// output line, which is usually the useful one.
func (r *Runner) taskFunc(task manifest.Task) workflow.Func {
	return workflow.ErrFunc(func(ctx context.Context) error {
		out, err := r.cmd.RunShell(ctx, r.shell, task.Dir, task.Run, task.Env)
		if err == nil {
			return nil
		}
		if line := lastLine(out); line != "" {
			return fmt.Errorf("%v: %s", err, line)
		}
		return err
	})
}

// lastLine returns the final non-empty line of command output.
func lastLine(out []byte) string {
	lines := bytes.Split(bytes.TrimSpace(out), []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		if line := bytes.TrimSpace(lines[i]); len(line) > 0 {
			return string(line)
		}
	}
	return ""
}
