package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tha-hammer/silmari/internal/checkpoint"
	"github.com/tha-hammer/silmari/internal/controller"
	"github.com/tha-hammer/silmari/internal/pipeline"
	"github.com/tha-hammer/silmari/internal/session"
	"github.com/tha-hammer/silmari/internal/tracker"
)

var (
	pipelineMode     string
	pipelineResume   bool
	pipelineSkipWith string
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run the full multi-phase pipeline",
	Long: `Pipeline runs the ordered phases research, decomposition, planning,
phase split, sync, and implementation. Each document phase is one agent
session; sync pushes the plan into the tracker; implementation runs the
autonomous work loop. State is checkpointed after every phase, so a
failed or interrupted run resumes at its first incomplete phase with
--resume. In interactive mode the run pauses after every phase; batch
mode pauses after each configured phase group; autonomous mode never
pauses.`,
	RunE: runPipeline,
}

func init() {
	pipelineCmd.Flags().StringVar(&pipelineMode, "mode", "", "autonomy mode: interactive, batch, or autonomous (default from config)")
	pipelineCmd.Flags().BoolVar(&pipelineResume, "resume", false, "resume from the latest resumable checkpoint")
	pipelineCmd.Flags().StringVar(&pipelineSkipWith, "skip-with", "", "skip the first phase, honoring this existing artifact")

	rootCmd.AddCommand(pipelineCmd)
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	mode := pipeline.AutonomyMode(cfg.Pipeline.Mode)
	if pipelineMode != "" {
		mode = pipeline.AutonomyMode(pipelineMode)
	}

	store, err := checkpoint.NewStore(cfg.Checkpoint.Dir)
	if err != nil {
		return err
	}

	machineOpts := []pipeline.MachineOption{
		pipeline.WithDecider(newTerminalDecider(cmd.InOrStdin(), cmd.OutOrStdout())),
		pipeline.WithBatchGroups(cfg.BatchGroups()),
	}

	var machine *pipeline.Machine
	if pipelineResume {
		cp, err := store.FindLatestResumable()
		if err != nil {
			return err
		}
		if cp == nil {
			return fmt.Errorf("no resumable checkpoint found")
		}
		machine, err = pipeline.ResumeMachine(cp.State, machineOpts...)
		if err != nil {
			return err
		}
		if machine.Done() {
			fmt.Fprintln(cmd.OutOrStdout(), "Checkpointed pipeline already completed; nothing to resume.")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Resuming pipeline at phase %s (checkpoint %s)\n", machine.Current(), cp.ID)
	} else {
		machine, err = pipeline.NewMachine(mode, machineOpts...)
		if err != nil {
			return err
		}
	}

	runner := session.NewExecRunner()
	executor := session.NewExecutor(runner, cfg.Session.AgentBinary, cfg.Session.AgentArgs...)
	tr := tracker.NewCLI(runner, cfg.Tracker.Binary, cfg.Loop.WorkDir)

	opts := controller.Options{
		MaxIterations:          cfg.Loop.MaxIterations,
		MaxConsecutiveFailures: cfg.Loop.MaxConsecutiveFailures,
		SessionTimeout:         cfg.Session.Timeout,
		VerifyCommand:          cfg.Loop.VerifyCommand,
		WorkDir:                cfg.Loop.WorkDir,
		Mode:                   mode,
		Logger:                 slog.Default(),
	}

	loop := func(ctx context.Context, state pipeline.State) (controller.Summary, error) {
		loopOpts := opts
		loopOpts.InitialState = &state
		ctrl := controller.New(tr, executor, runner, store, loopOpts)
		summary, err := ctrl.Run(ctx)
		printSummary(cmd, summary)
		return summary, err
	}

	r := controller.NewPipelineRunner(machine, executor, runner, store, opts, loop)

	if pipelineSkipWith != "" {
		if err := r.Skip(pipelineSkipWith); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Skipped to phase %s\n", machine.Current())
	}

	state, err := r.Run(cmd.Context())
	if err != nil {
		if hint := exitHint(err); hint != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "Hint: %s\n", hint)
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nPipeline %s after %d session(s).\n", state.Status, state.Sessions)
	return nil
}
