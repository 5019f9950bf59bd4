package translator

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

// killGrace bounds how long Wait blocks on pipes after the child was killed.
const killGrace = 5 * time.Second

type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// CommandRunner abstracts process execution so tests can fake the tool.
type CommandRunner interface {
	Run(ctx context.Context, env []string, name string, args ...string) (CommandResult, error)
}

type ExecRunner struct{}

func (r *ExecRunner) Run(ctx context.Context, env []string, name string, args ...string) (CommandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = env
	cmd.WaitDelay = killGrace
	killProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := CommandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		if result.Stderr == "" {
			result.Stderr = err.Error()
		}
		return result, err
	}

	return result, nil
}
