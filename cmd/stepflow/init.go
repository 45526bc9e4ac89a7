package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const exampleManifest = `name: example pipeline
# Paths that trigger a re-run with "stepflow run --watch".
watch:
  - .
phases:
  - name: setup
    tasks:
      - name: check toolchain
        order: 1
        run: go version
      - name: download modules
        order: 2
        run: go mod download
  - name: verify
    tasks:
      - name: vet
        order: 1
        run: go vet ./...
      - name: test
        order: 2
        run: go test ./...
      - name: lint
        order: 3
        run: golangci-lint run
        allow_failure: true
`

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example workflow manifest",
	RunE: func(cmd *cobra.Command, args []string) error {
		const path = "stepflow.yaml"

		if _, err := os.Stat(path); err == nil && !initForce {
			printStatus("✗", fmt.Sprintf("%s already exists (use --force to overwrite)", path), color.FgRed)
			return fmt.Errorf("%s already exists", path)
		}

		if err := os.WriteFile(path, []byte(exampleManifest), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		printStatus("✓", fmt.Sprintf("Created %s", path), color.FgGreen)

		fmt.Printf("\nRun it with:\n  stepflow run\n")
		return nil
	},
}

// printStatus prints a colored status glyph followed by a message.
func printStatus(glyph, message string, attr color.Attribute) {
	fmt.Printf("%s %s\n", color.New(attr).Sprint(glyph), message)
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing manifest")
}
