package controller

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tha-hammer/silmari/internal/checkpoint"
	"github.com/tha-hammer/silmari/internal/graph"
	"github.com/tha-hammer/silmari/internal/pipeline"
	"github.com/tha-hammer/silmari/internal/session"
	"github.com/tha-hammer/silmari/internal/tracker"
	"github.com/tha-hammer/silmari/internal/types"
	"github.com/tha-hammer/silmari/internal/vcs"
)

// Default limits applied when Options leaves them zero.
const (
	DefaultMaxIterations          = 100
	DefaultMaxConsecutiveFailures = 3
)

// SessionExecutor runs one agent session per call. *session.Executor is the
// production implementation.
type SessionExecutor interface {
	Execute(ctx context.Context, payload session.Payload) (session.Result, error)
}

// Options configures a loop run.
type Options struct {
	// MaxIterations caps the total number of loop iterations.
	MaxIterations int

	// MaxConsecutiveFailures halts the loop once this many iterations fail
	// in a row without an intervening success.
	MaxConsecutiveFailures int

	// SessionTimeout bounds each agent session.
	SessionTimeout time.Duration

	// VerifyCommand is run after every successful session; the item is
	// closed only when it exits zero. Empty disables verification.
	VerifyCommand []string

	// WorkDir is the working tree sessions and verification run in.
	WorkDir string

	// Mode is recorded in checkpointed state.
	Mode pipeline.AutonomyMode

	// InitialState resumes the loop with previously checkpointed counters.
	InitialState *pipeline.State

	Logger *slog.Logger
}

// Summary is the outcome report of a loop run.
type Summary struct {
	Iterations       int
	Completed        int
	Blocked          int
	Failed           int
	HaltReason       string
	LastItem         string
	LastCheckpointID types.ID
}

// Controller drives the autonomous work loop: snapshot the tracker, pick the
// highest-value ready item, run one agent session against it, verify the
// result independently, and record the outcome back in the tracker. An item
// is closed only when its session succeeded AND verification passed; a
// session that claims success but fails verification blocks the item instead.
type Controller struct {
	tracker  tracker.Tracker
	executor SessionExecutor
	runner   session.Runner
	store    *checkpoint.Store
	opts     Options
	log      *slog.Logger

	state       pipeline.State
	summary     Summary
	consecutive int
}

// New wires a Controller. The runner is used for verification commands and
// VCS stamping, not for agent sessions.
func New(tr tracker.Tracker, ex SessionExecutor, runner session.Runner, store *checkpoint.Store, opts Options) *Controller {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if opts.MaxConsecutiveFailures <= 0 {
		opts.MaxConsecutiveFailures = DefaultMaxConsecutiveFailures
	}
	if opts.Mode == "" {
		opts.Mode = pipeline.ModeAutonomous
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	state := pipeline.State{
		Phase:  pipeline.PhaseImplementation,
		Status: pipeline.RunStatusRunning,
		Mode:   opts.Mode,
	}
	if opts.InitialState != nil {
		state = opts.InitialState.Clone()
		state.Status = pipeline.RunStatusRunning
	}

	return &Controller{
		tracker:  tr,
		executor: ex,
		runner:   runner,
		store:    store,
		opts:     opts,
		log:      opts.Logger,
		state:    state,
		summary:  Summary{Iterations: state.Iterations},
	}
}

// Run executes the loop until no ready work remains, a limit is exceeded, or
// a fatal error occurs. It re-snapshots the tracker every iteration so
// readiness never acts on stale data, and checkpoints after every iteration
// and before every halt. A "no ready work" halt is a clean stop, not an
// error; limit halts return a LimitExceeded error alongside the summary.
func (c *Controller) Run(ctx context.Context) (Summary, error) {
	for {
		if err := ctx.Err(); err != nil {
			return c.halt(ctx, "interrupted", err)
		}
		if c.state.Iterations >= c.opts.MaxIterations {
			return c.halt(ctx, "iteration limit reached",
				types.NewError(types.LIMIT_MAX_ITERATIONS,
					fmt.Sprintf("reached the %d-iteration limit", c.opts.MaxIterations)))
		}

		g, err := tracker.Snapshot(ctx, c.tracker)
		if err != nil {
			return c.halt(ctx, "tracker snapshot failed", err)
		}

		ready, err := graph.ReadySet(g)
		if err != nil {
			// Cycles and other graph errors are fatal: the schedule is
			// undefined until a human repairs the dependency structure.
			return c.halt(ctx, "dependency graph is unschedulable", err)
		}
		if len(ready) == 0 {
			c.summary.HaltReason = "no ready work"
			c.state.Status = pipeline.RunStatusCompleted
			if err := c.checkpoint(ctx, "", ""); err != nil {
				return c.summary, err
			}
			c.log.Info("loop halted: no ready work",
				"iterations", c.summary.Iterations,
				"completed", c.summary.Completed)
			return c.summary, nil
		}

		item := ready[0]
		c.summary.LastItem = item.ID
		if err := c.runIteration(ctx, g, item); err != nil {
			return c.halt(ctx, fmt.Sprintf("iteration failed on item %s", item.ID), err)
		}

		c.state.Iterations++
		c.summary.Iterations = c.state.Iterations
		if err := c.checkpoint(ctx, item.ID, ""); err != nil {
			return c.summary, err
		}

		if c.consecutive >= c.opts.MaxConsecutiveFailures {
			return c.halt(ctx, "consecutive-failure limit reached",
				types.NewError(types.LIMIT_MAX_CONSECUTIVE_FAILURES,
					fmt.Sprintf("%d consecutive failed iterations, last item %s",
						c.consecutive, item.ID)))
		}
	}
}

// runIteration processes one ready item. Session and verification failures
// are absorbed into counters and a nil return so the loop can move on; only
// tracker mutation errors propagate, since the loop cannot safely continue
// when it no longer knows what the tracker believes.
func (c *Controller) runIteration(ctx context.Context, g *graph.Graph, item graph.WorkItem) error {
	score := graph.ComplexityScore(g, item.ID)
	complexity := graph.ComplexityOf(g, item.ID)

	var deps []graph.WorkItem
	for _, depID := range g.Dependencies(item.ID) {
		if dep, ok := g.Item(depID); ok {
			deps = append(deps, dep)
		}
	}

	c.log.Info("starting work item",
		"item", item.ID,
		"title", item.Title,
		"priority", int(item.Priority),
		"complexity", string(complexity),
		"iteration", c.state.Iterations+1)

	if err := c.tracker.UpdateStatus(ctx, item.ID, graph.StatusInProgress); err != nil {
		return err
	}

	result, err := c.executor.Execute(ctx, session.Payload{
		Instructions: BuildPayload(item, complexity, score, deps),
		WorkDir:      c.opts.WorkDir,
		Timeout:      c.opts.SessionTimeout,
	})
	c.state.Sessions++

	if err != nil {
		// Timeouts and non-zero exits both count as failed iterations. The
		// item keeps its in_progress status and is never closed; re-running
		// it is a human decision.
		c.recordFailure(item.ID, err)
		c.summary.Failed++
		if session.IsTimeout(err) {
			c.log.Warn("session timed out", "item", item.ID, "elapsed", result.Elapsed)
		} else {
			c.log.Warn("session failed", "item", item.ID, "error", err)
		}
		return nil
	}

	if verr := c.verify(ctx); verr != nil {
		// The session claimed success but independent verification failed.
		// Blocking instead of closing keeps a broken "done" from unlocking
		// its dependents.
		reason := fmt.Sprintf("verification failed after session success: %v", verr)
		if err := c.tracker.Block(ctx, item.ID, reason); err != nil {
			return err
		}
		c.recordFailure(item.ID, verr)
		c.summary.Blocked++
		c.log.Warn("verification failed, item blocked", "item", item.ID, "error", verr)
		return nil
	}

	if err := c.tracker.Close(ctx, item.ID, "completed by autonomous loop, verification passed"); err != nil {
		return err
	}
	c.consecutive = 0
	c.summary.Completed++
	c.log.Info("work item closed", "item", item.ID, "elapsed", result.Elapsed)
	return nil
}

// verify runs the independent verification command in the working tree. A
// missing command disables verification; any failure maps to a
// VERIFICATION_TESTS_FAILED error carrying the tail of stderr.
func (c *Controller) verify(ctx context.Context) error {
	if len(c.opts.VerifyCommand) == 0 {
		return nil
	}
	run, err := c.runner.Run(ctx, session.Command{
		Name:    c.opts.VerifyCommand[0],
		Args:    c.opts.VerifyCommand[1:],
		Dir:     c.opts.WorkDir,
		Timeout: c.opts.SessionTimeout,
	})
	if err == nil {
		return nil
	}
	detail := tail(run.Stderr, 2000)
	if detail == "" {
		detail = tail(run.Stdout, 2000)
	}
	return types.WrapError(types.VERIFICATION_TESTS_FAILED,
		fmt.Sprintf("%s exited non-zero: %s", strings.Join(c.opts.VerifyCommand, " "), detail), err)
}

func (c *Controller) recordFailure(itemID string, err error) {
	c.consecutive++
	c.state.Errors = append(c.state.Errors, fmt.Sprintf("%s: %v", itemID, err))
}

// checkpoint publishes the current state, stamped with the working tree's
// VCS head when one exists.
func (c *Controller) checkpoint(ctx context.Context, itemID string, failed pipeline.Phase) error {
	cp, err := c.store.Save(checkpoint.Checkpoint{
		State:       c.state.Clone(),
		VCSMarker:   vcs.HeadMarker(ctx, c.runner, c.opts.WorkDir),
		FailedPhase: failed,
		Item:        itemID,
	})
	if err != nil {
		return err
	}
	c.summary.LastCheckpointID = cp.ID
	return nil
}

// halt checkpoints, fills in the halt reason, and returns the summary with
// the triggering error. The summary names the taxonomy code, offending item,
// and checkpoint identifier so the operator can act on the report alone.
func (c *Controller) halt(ctx context.Context, reason string, cause error) (Summary, error) {
	c.state.Status = pipeline.RunStatusFailed
	failed := pipeline.Phase("")
	if cause != nil {
		failed = pipeline.PhaseImplementation
	}
	if err := c.checkpoint(ctx, c.summary.LastItem, failed); err != nil {
		c.log.Error("failed to write halt checkpoint", "error", err)
	}

	if code := types.CodeOf(cause); code != "" {
		c.summary.HaltReason = fmt.Sprintf("%s (%s)", reason, code)
	} else {
		c.summary.HaltReason = reason
	}
	c.log.Error("loop halted",
		"reason", c.summary.HaltReason,
		"item", c.summary.LastItem,
		"checkpoint", c.summary.LastCheckpointID.String(),
		"iterations", c.summary.Iterations)
	return c.summary, cause
}

// tail returns at most n trailing bytes of s, trimmed.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
