package session

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/tha-hammer/silmari/internal/types"
)

// Command describes one external process invocation. Every shell-out in the
// engine (agent sessions, tracker calls, verification runs, git stamps) goes
// through this one abstraction so the rest of the system never depends on
// subprocess idiosyncrasies.
type Command struct {
	// Name is the binary to invoke.
	Name string

	// Args are the command-line arguments.
	Args []string

	// Dir is the working directory; empty means the current directory.
	Dir string

	// Stdin is written to the process's standard input when non-empty.
	Stdin string

	// Timeout bounds the invocation; zero means no bound.
	Timeout time.Duration
}

// RunResult captures the outcome of one invocation with both streams intact.
type RunResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Elapsed  time.Duration
}

// Runner executes commands synchronously. Implementations must distinguish
// timeouts from ordinary failures so callers can retry with a larger budget.
type Runner interface {
	Run(ctx context.Context, cmd Command) (RunResult, error)
}

// ExecRunner is the os/exec-backed Runner.
type ExecRunner struct{}

// NewExecRunner creates the default subprocess runner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes the command, capturing both streams. Failure kinds:
//   - EXECUTION_TIMEOUT (retryable): the timeout elapsed; the process is killed.
//   - EXECUTION_SPAWN_FAILED: the process could not start.
//   - EXECUTION_NON_ZERO_EXIT: the process ran and exited non-zero; the
//     RunResult carries the exit code and captured streams.
//
// Success is derived solely from the process's exit signal, never from
// inspecting output content.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (RunResult, error) {
	execCtx := ctx
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	proc := exec.CommandContext(execCtx, cmd.Name, cmd.Args...)
	proc.Dir = cmd.Dir
	if cmd.Stdin != "" {
		proc.Stdin = strings.NewReader(cmd.Stdin)
	}

	var stdout, stderr bytes.Buffer
	proc.Stdout = &stdout
	proc.Stderr = &stderr

	start := time.Now()
	runErr := proc.Run()
	result := RunResult{
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
		Elapsed: time.Since(start),
	}

	if execCtx.Err() == context.DeadlineExceeded {
		result.ExitCode = -1
		return result, types.NewRetryableError(types.EXECUTION_TIMEOUT,
			fmt.Sprintf("%s exceeded timeout of %v", cmd.Name, cmd.Timeout))
	}
	if execCtx.Err() != nil {
		result.ExitCode = -1
		return result, types.WrapError(types.EXECUTION_SPAWN_FAILED,
			fmt.Sprintf("%s cancelled", cmd.Name), execCtx.Err())
	}

	if runErr != nil {
		exitErr, ok := runErr.(*exec.ExitError)
		if !ok {
			result.ExitCode = -1
			return result, types.WrapError(types.EXECUTION_SPAWN_FAILED,
				fmt.Sprintf("failed to spawn %s", cmd.Name), runErr)
		}
		result.ExitCode = exitErr.ExitCode()
		return result, types.WrapError(types.EXECUTION_NON_ZERO_EXIT,
			fmt.Sprintf("%s exited with code %d", cmd.Name, result.ExitCode), runErr)
	}

	result.ExitCode = 0
	return result, nil
}
