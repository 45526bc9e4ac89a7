package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stepflow/stepflow/internal/config"
	iexec "github.com/stepflow/stepflow/internal/exec"
	"github.com/stepflow/stepflow/internal/history"
	"github.com/stepflow/stepflow/internal/manifest"
	"github.com/stepflow/stepflow/internal/runner"
	"github.com/stepflow/stepflow/internal/watch"
	"github.com/stepflow/stepflow/pkg/stepper"
)

var (
	runWorkers   int
	runWatch     bool
	runNoHistory bool
)

var runCmd = &cobra.Command{
	Use:   "run [manifest]",
	Short: "Run a workflow manifest",
	Long: `Run executes the tasks declared in a workflow manifest (stepflow.yaml
by default) with a live progress display, then prints the summary.

With --watch, stepflow keeps running and re-executes the workflow
whenever one of the manifest's watch paths changes.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "stepflow.yaml"
		if len(args) > 0 {
			path = args[0]
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if !cfg.TUI.Color {
			color.NoColor = true
		}

		workers := cfg.Run.Workers
		if cmd.Flags().Changed("workers") {
			workers = runWorkers
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if runWatch {
			return runWatched(ctx, cfg, path, workers)
		}

		res, err := runOnce(ctx, cfg, path, workers)
		if err != nil {
			return err
		}
		if res.HardFailed > 0 {
			return fmt.Errorf("%d of %d tasks failed", res.HardFailed, res.Total)
		}
		return nil
	},
}

// runOnce executes the manifest a single time with a fresh tracker.
func runOnce(ctx context.Context, cfg *config.Config, path string, workers int) (runner.Result, error) {
	m, err := manifest.Load(path)
	if err != nil {
		return runner.Result{}, err
	}

	tracker := stepper.New(
		stepper.WithRefreshInterval(cfg.TUI.RefreshRate),
		stepper.WithAutoStart(false),
	)

	r := runner.New(tracker, iexec.NewRunner(), cfg.Run.Shell, workers)

	started := time.Now()
	tracker.StartWorkflow()
	res, runErr := r.Run(ctx, m)
	tracker.PrintSummary()

	if cfg.History.Enabled && !runNoHistory && runErr == nil {
		if err := recordRun(cfg, m, path, tracker, res, started); err != nil {
			fmt.Fprintf(os.Stderr, "warning: recording run history: %v\n", err)
		}
	}

	return res, runErr
}

// runWatched loops runOnce on file changes until the context is
// canceled. Failures between runs do not stop the loop; watch mode
// exists to iterate on a failing workflow.
func runWatched(ctx context.Context, cfg *config.Config, path string, workers int) error {
	m, err := manifest.Load(path)
	if err != nil {
		return err
	}

	paths := m.Watch
	if len(paths) == 0 {
		paths = []string{path}
	}

	w, err := watch.New(paths, 300*time.Millisecond)
	if err != nil {
		return err
	}
	defer w.Close()

	for {
		if _, err := runOnce(ctx, cfg, path, workers); err != nil && ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "run error: %v\n", err)
		}
		if ctx.Err() != nil {
			return nil
		}

		fmt.Printf("\n%s watching for changes (ctrl-c to stop)\n", color.CyanString("▸"))
		select {
		case <-ctx.Done():
			return nil
		case changed := <-w.Triggers():
			fmt.Printf("%s %s changed, re-running\n\n", color.CyanString("▸"), changed)
		}
	}
}

// recordRun writes the finished run to the history database and prunes
// old entries.
func recordRun(cfg *config.Config, m *manifest.Manifest, path string, tracker *stepper.Tracker, res runner.Result, started time.Time) error {
	dbPath := cfg.History.Path
	if dbPath == "" {
		dbPath = history.DefaultPath()
	}

	store, err := history.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	name := m.Name
	if name == "" {
		name = path
	}

	run := history.Run{
		ID:         history.NewRunID(),
		Workflow:   name,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Total:      res.Total,
		Failed:     res.Failed,
	}
	if err := store.RecordRun(run, history.ResultsFromSnapshot(tracker.Snapshot())); err != nil {
		return err
	}
	return store.Prune(cfg.History.Keep)
}

func init() {
	runCmd.Flags().IntVar(&runWorkers, "workers", 1, "Number of tasks to run in parallel")
	runCmd.Flags().BoolVar(&runWatch, "watch", false, "Re-run the workflow when watched paths change")
	runCmd.Flags().BoolVar(&runNoHistory, "no-history", false, "Skip recording this run in history")
}
