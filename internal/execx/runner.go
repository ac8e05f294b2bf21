// Package execx wraps external tool invocation behind a narrow contract:
// run a command, get its exit code and captured output back. The
// orchestrator's collaborators (compose, git, pip, npm, ollama, lsof) all
// go through a Runner so tests can substitute a fake.
package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Result carries the outcome of a finished command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Output returns the combined, trimmed stdout and stderr, for diagnostics.
func (r Result) Output() string {
	combined := strings.TrimSpace(r.Stdout)
	if errOut := strings.TrimSpace(r.Stderr); errOut != "" {
		if combined != "" {
			combined += "\n"
		}
		combined += errOut
	}
	return combined
}

// Runner executes an external command synchronously.
type Runner interface {
	// Run executes name with args in dir (empty dir means the current
	// directory). A non-nil error is returned when the command could not
	// be started or exited non-zero; the Result is populated either way.
	Run(ctx context.Context, dir string, name string, args ...string) (Result, error)
}

type execRunner struct{}

// NewRunner returns a Runner backed by os/exec.
func NewRunner() Runner {
	return execRunner{}
}

func (execRunner) Run(ctx context.Context, dir string, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	runErr := cmd.Run()

	result := Result{
		Stdout: stdoutBuf.String(),
		Stderr: stderrBuf.String(),
	}

	if runErr == nil {
		return result, nil
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, fmt.Errorf("%s exited with code %d: %s", name, result.ExitCode, result.Output())
	}

	// The command never ran (not found, permission, cancelled context).
	result.ExitCode = -1
	return result, fmt.Errorf("failed to execute %s: %w", name, runErr)
}
