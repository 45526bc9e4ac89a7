package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "stepflow",
	Short: "Workflow progress tracker",
	Long: `Stepflow tracks stepped workflows: tasks grouped by phase, sorted by
order value, with a live spinner display while they run and a grouped,
failure-annotated summary at the end.

Workflows are declared in a YAML manifest of shell-command tasks and run
with "stepflow run". Go programs can embed the same tracking through the
pkg/stepper library.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}
