package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stepflow/stepflow/internal/config"
	"github.com/stepflow/stepflow/internal/history"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show resolved configuration",
	Long: `Config displays the configuration stepflow resolved from defaults, the
user config (~/.config/stepflow/config.yaml), the project override
(.stepflow.yaml), and STEPFLOW_* environment variables.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("tui.refresh_rate: %s\n", cfg.TUI.RefreshRate)
		fmt.Printf("tui.color: %t\n", cfg.TUI.Color)
		fmt.Printf("run.workers: %d\n", cfg.Run.Workers)
		fmt.Printf("run.shell: %s\n", cfg.Run.Shell)
		fmt.Printf("history.enabled: %t\n", cfg.History.Enabled)
		historyPath := cfg.History.Path
		if historyPath == "" {
			historyPath = history.DefaultPath()
		}
		fmt.Printf("history.path: %s\n", historyPath)
		fmt.Printf("history.keep: %d\n", cfg.History.Keep)

		fmt.Println()
		fmt.Printf("user config: %s\n", config.GetUserConfigPath())
		if projectPath := config.GetProjectConfigPath(); projectPath != "" {
			fmt.Printf("project config: %s\n", projectPath)
		} else {
			fmt.Println("project config: (none found)")
		}
	},
}
