package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stepflow/stepflow/internal/config"
	"github.com/stepflow/stepflow/internal/history"
	"github.com/stepflow/stepflow/pkg/workflow"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded workflow runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.ListRuns(historyLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No recorded runs.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tWORKFLOW\tSTARTED\tDURATION\tRESULT")
		for _, run := range runs {
			result := color.GreenString("✓ passed")
			if run.Failed > 0 {
				result = color.RedString("✗ %d/%d failed", run.Failed, run.Total)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				run.ID,
				run.Workflow,
				run.StartedAt.Local().Format("2006-01-02 15:04:05"),
				run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond),
				result,
			)
		}
		return w.Flush()
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the task results of one recorded run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		tasks, err := store.GetRunTasks(args[0])
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			return fmt.Errorf("no run found with ID %q", args[0])
		}

		phase := ""
		for _, task := range tasks {
			if task.Phase != phase {
				phase = task.Phase
				color.New(color.FgCyan, color.Bold).Println(phase)
			}
			printTaskResult(task)
		}
		return nil
	},
}

// printTaskResult renders one recorded task with its glyph.
func printTaskResult(task history.TaskResult) {
	switch task.State {
	case workflow.StateSucceeded:
		fmt.Printf("  %s %s (%dms)\n", color.GreenString("✓"), task.Name, task.DurationMS)
	case workflow.StateFailed:
		fmt.Printf("  %s %s - %s\n", color.RedString("✗"), task.Name, task.Message)
	default:
		fmt.Printf("  - %s (not run)\n", task.Name)
	}
}

// openHistory opens the configured history database.
func openHistory() (*history.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	path := cfg.History.Path
	if path == "" {
		path = history.DefaultPath()
	}
	return history.Open(path)
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of runs to list")
	historyCmd.AddCommand(historyShowCmd)
}
