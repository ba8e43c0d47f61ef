package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tha-hammer/silmari/internal/checkpoint"
	"github.com/tha-hammer/silmari/internal/controller"
	"github.com/tha-hammer/silmari/internal/pipeline"
	"github.com/tha-hammer/silmari/internal/session"
	"github.com/tha-hammer/silmari/internal/tracker"
	"github.com/tha-hammer/silmari/internal/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the autonomous work loop until no ready work remains",
	Long: `Run repeatedly snapshots the tracker, picks the highest-value ready
item, executes one agent session against it, verifies the result with an
independent command, and closes or blocks the item accordingly. The loop
halts cleanly when nothing is ready, and with an error when an iteration
or consecutive-failure limit is exceeded.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctrl, store, err := buildController(nil)
		if err != nil {
			return err
		}
		summary, err := ctrl.Run(cmd.Context())
		printSummary(cmd, summary)
		if hint := exitHint(err); hint != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "  Hint:       %s\n", hint)
		}

		maxAge := time.Duration(cfg.Checkpoint.MaxAgeDays) * 24 * time.Hour
		if need, nerr := store.NeedsCleanup(cfg.Checkpoint.MaxCount, maxAge); nerr == nil && need {
			fmt.Fprintln(cmd.OutOrStdout(), "  Note:       checkpoint store exceeds retention thresholds; see 'silmari checkpoint cleanup'")
		}
		return err
	},
}

// buildController wires the production loop from configuration, optionally
// seeded with a checkpointed state for resume.
func buildController(initial *pipeline.State) (*controller.Controller, *checkpoint.Store, error) {
	store, err := checkpoint.NewStore(cfg.Checkpoint.Dir)
	if err != nil {
		return nil, nil, err
	}

	runner := session.NewExecRunner()
	executor := session.NewExecutor(runner, cfg.Session.AgentBinary, cfg.Session.AgentArgs...)
	tr := tracker.NewCLI(runner, cfg.Tracker.Binary, cfg.Loop.WorkDir)

	ctrl := controller.New(tr, executor, runner, store, controller.Options{
		MaxIterations:          cfg.Loop.MaxIterations,
		MaxConsecutiveFailures: cfg.Loop.MaxConsecutiveFailures,
		SessionTimeout:         cfg.Session.Timeout,
		VerifyCommand:          cfg.Loop.VerifyCommand,
		WorkDir:                cfg.Loop.WorkDir,
		Mode:                   pipeline.AutonomyMode(cfg.Pipeline.Mode),
		InitialState:           initial,
		Logger:                 slog.Default(),
	})
	return ctrl, store, nil
}

// printSummary renders the end-of-run report. Any halt names the taxonomy
// code, last item, and checkpoint identifier so the operator can act without
// digging through logs.
func printSummary(cmd *cobra.Command, s controller.Summary) {
	heading := color.New(color.Bold)
	good := color.New(color.FgGreen)
	bad := color.New(color.FgRed)
	warn := color.New(color.FgYellow)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	heading.Fprintln(out, "Run summary")
	fmt.Fprintf(out, "  Iterations: %d\n", s.Iterations)
	good.Fprintf(out, "  Completed:  %d\n", s.Completed)
	warn.Fprintf(out, "  Blocked:    %d\n", s.Blocked)
	bad.Fprintf(out, "  Failed:     %d\n", s.Failed)
	if s.LastItem != "" {
		fmt.Fprintf(out, "  Last item:  %s\n", s.LastItem)
	}
	if !s.LastCheckpointID.IsZero() {
		fmt.Fprintf(out, "  Checkpoint: %s\n", s.LastCheckpointID)
	}
	if s.HaltReason != "" {
		fmt.Fprintf(out, "  Halted:     %s\n", s.HaltReason)
	}
}

// exitHint maps halt errors to a short operator hint.
func exitHint(err error) string {
	switch types.CodeOf(err) {
	case types.LIMIT_MAX_CONSECUTIVE_FAILURES:
		return "inspect the failing items, then resume with 'silmari resume'"
	case types.LIMIT_MAX_ITERATIONS:
		return "raise loop.max_iterations or resume with 'silmari resume'"
	case types.GRAPH_CYCLE_DETECTED:
		return "break the dependency cycle in the tracker, then re-run"
	}
	return ""
}
