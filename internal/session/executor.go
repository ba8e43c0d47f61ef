package session

import (
	"context"
	"errors"
	"time"

	"github.com/tha-hammer/silmari/internal/types"
)

// Payload is the instruction bundle for one agent session.
type Payload struct {
	// Instructions is the full instruction text fed to the agent on stdin.
	Instructions string

	// WorkDir is the working tree the session operates on.
	WorkDir string

	// Timeout bounds the session.
	Timeout time.Duration
}

// Result is the outcome of one agent session. Success comes from the
// process's exit signal only; Output has no guaranteed schema and is parsed
// separately by the artifact extractor.
type Result struct {
	Success bool
	Output  string
	Errors  string
	Elapsed time.Duration
}

// Executor runs exactly one external agent invocation per call,
// synchronously and timeout-bounded. Sessions are never concurrent: the
// agent mutates a shared working tree.
type Executor struct {
	runner Runner
	binary string
	args   []string
}

// NewExecutor creates an Executor invoking the given agent binary through
// the shared command runner.
func NewExecutor(runner Runner, binary string, args ...string) *Executor {
	return &Executor{runner: runner, binary: binary, args: args}
}

// Execute runs one session. The returned error is nil on success, an
// EXECUTION_TIMEOUT (retryable) when the budget elapsed, and an
// EXECUTION_NON_ZERO_EXIT or EXECUTION_SPAWN_FAILED otherwise; in every case
// the Result carries whatever output was captured.
func (e *Executor) Execute(ctx context.Context, payload Payload) (Result, error) {
	run, err := e.runner.Run(ctx, Command{
		Name:    e.binary,
		Args:    e.args,
		Dir:     payload.WorkDir,
		Stdin:   payload.Instructions,
		Timeout: payload.Timeout,
	})

	result := Result{
		Success: err == nil,
		Output:  run.Stdout,
		Errors:  run.Stderr,
		Elapsed: run.Elapsed,
	}
	return result, err
}

// IsTimeout reports whether err is the distinct session-timeout failure,
// letting callers choose a retry with a larger budget over a permanent
// failure.
func IsTimeout(err error) bool {
	return errors.Is(err, types.NewError(types.EXECUTION_TIMEOUT, ""))
}
