// Package exec provides an interface for running manifest task commands.
package exec

import (
	"context"
)

// CommandRunner defines the interface for running workflow task commands.
// This abstraction allows mocking command execution in tests.
type CommandRunner interface {
	// RunShell executes a command through the given shell's -c flag.
	// The working directory is set to workDir if non-empty and extra
	// environment variables are appended to the process environment.
	// Returns combined stdout/stderr output.
	RunShell(ctx context.Context, shell, workDir, command string, env map[string]string) (output []byte, err error)
}
