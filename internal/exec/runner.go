package exec

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// ShellRunner implements CommandRunner using os/exec.
type ShellRunner struct{}

// NewRunner creates a new ShellRunner.
func NewRunner() *ShellRunner {
	return &ShellRunner{}
}

// RunShell executes a command through the given shell's -c flag and
// returns combined stdout/stderr output.
func (r *ShellRunner) RunShell(ctx context.Context, shell, workDir, command string, env map[string]string) ([]byte, error) {
	if shell == "" {
		shell = "/bin/sh"
	}

	cmd := exec.CommandContext(ctx, shell, "-c", command)
	if workDir != "" {
		cmd.Dir = workDir
	}
	if len(env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range env {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
		}
	}
	return cmd.CombinedOutput()
}

// Verify ShellRunner implements CommandRunner at compile time.
var _ CommandRunner = (*ShellRunner)(nil)
