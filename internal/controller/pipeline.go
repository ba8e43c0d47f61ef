package controller

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/tha-hammer/silmari/internal/checkpoint"
	"github.com/tha-hammer/silmari/internal/pipeline"
	"github.com/tha-hammer/silmari/internal/session"
	"github.com/tha-hammer/silmari/internal/types"
	"github.com/tha-hammer/silmari/internal/vcs"
)

// phaseInstructions is the instruction template fed to the agent for each
// document-producing phase. The implementation phase is driven by the work
// loop instead of a single session.
var phaseInstructions = map[pipeline.Phase]string{
	pipeline.PhaseResearch: `Research the current feature request against the codebase.
Write your findings to a research document (a markdown file whose name
contains "research", starting with the heading "# Research") and print
its path.`,
	pipeline.PhaseDecomposition: `Decompose the researched feature into independent work items with
explicit dependencies. Write the breakdown to a decomposition document
(a markdown file whose name contains "decomposition", starting with
"# Decomposition") and print its path.`,
	pipeline.PhasePlanning: `Produce an implementation plan for the decomposed work items. Write it
to a plan document (a markdown file whose name contains "plan", starting
with "# Plan") and print its path.`,
	pipeline.PhasePhaseSplit: `Split the plan into ordered delivery phases. Write the split to a phase
document (a markdown file whose name contains "phase", starting with
"# Phase") and print its path.`,
	pipeline.PhaseSync: `Create or update tracker work items to match the planned phases,
including their dependency edges. Report what was created or updated.`,
}

// LoopFunc runs the autonomous work loop for the implementation phase,
// starting from the given pipeline state.
type LoopFunc func(ctx context.Context, state pipeline.State) (Summary, error)

// PipelineRunner drives one multi-phase pipeline run: each document phase is
// one agent session whose output is scanned for artifact paths, the sync
// phase pushes the plan into the tracker, and the implementation phase hands
// off to the work loop. State is checkpointed after every phase transition.
type PipelineRunner struct {
	machine  *pipeline.Machine
	executor SessionExecutor
	runner   session.Runner
	store    *checkpoint.Store
	opts     Options
	log      *slog.Logger
	loop     LoopFunc
}

// NewPipelineRunner wires a PipelineRunner around an existing machine, which
// may be fresh or resumed from a checkpoint.
func NewPipelineRunner(m *pipeline.Machine, ex SessionExecutor, runner session.Runner, store *checkpoint.Store, opts Options, loop LoopFunc) *PipelineRunner {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &PipelineRunner{
		machine:  m,
		executor: ex,
		runner:   runner,
		store:    store,
		opts:     opts,
		log:      opts.Logger,
		loop:     loop,
	}
}

// Skip honors an externally supplied artifact for the machine's current
// phase, then checkpoints.
func (r *PipelineRunner) Skip(artifactPath string) error {
	if err := r.machine.Skip(artifactPath); err != nil {
		return err
	}
	return r.checkpoint(context.Background(), "")
}

// Run executes phases until the pipeline completes, a phase fails, or a
// human exits at a pause point. The returned state is the final checkpointed
// state; the error is nil for completion and user exit, non-nil for failure.
func (r *PipelineRunner) Run(ctx context.Context) (pipeline.State, error) {
	for !r.machine.Done() {
		if err := ctx.Err(); err != nil {
			_ = r.checkpoint(ctx, r.machine.Current())
			return r.machine.State(), err
		}

		phase := r.machine.Current()
		r.log.Info("starting phase", "phase", string(phase))

		result, execErr := r.runPhase(ctx, phase)
		if execErr != nil && types.IsFatal(execErr) {
			// Artifact validation failures are fatal: halt without
			// recording a phase transition.
			_ = r.checkpoint(ctx, phase)
			return r.machine.State(), execErr
		}

		decision, err := r.machine.CompletePhase(result)
		if cerr := r.checkpoint(ctx, failedPhaseOf(result)); cerr != nil {
			return r.machine.State(), cerr
		}
		if err != nil {
			return r.machine.State(), err
		}

		switch decision {
		case pipeline.DecisionDone:
			r.log.Info("pipeline completed",
				"sessions", r.machine.State().Sessions,
				"iterations", r.machine.State().Iterations)
			return r.machine.State(), nil
		case pipeline.DecisionHalt:
			if execErr != nil {
				return r.machine.State(), execErr
			}
			if !result.Success {
				return r.machine.State(), types.NewError(types.EXECUTION_NON_ZERO_EXIT,
					fmt.Sprintf("phase %s failed", phase))
			}
			// A successful phase can still halt: the human chose exit.
			r.log.Info("pipeline exited at pause point", "after_phase", string(phase))
			return r.machine.State(), nil
		}
	}
	return r.machine.State(), nil
}

// runPhase executes one phase and builds its result. Partial output from a
// failed session is recorded in the result log but never forwarded as
// artifacts. Fatal errors (artifact validation) are returned directly.
func (r *PipelineRunner) runPhase(ctx context.Context, phase pipeline.Phase) (pipeline.PhaseResult, error) {
	if phase == pipeline.PhaseImplementation && r.loop != nil {
		return r.runImplementation(ctx)
	}

	res, err := r.executor.Execute(ctx, session.Payload{
		Instructions: phaseInstructions[phase],
		WorkDir:      r.opts.WorkDir,
		Timeout:      r.opts.SessionTimeout,
	})
	r.machine.RecordSession()

	result := pipeline.PhaseResult{
		Phase:       phase,
		Log:         res.Output,
		CompletedAt: time.Now(),
	}
	if err != nil {
		result.Errors = []string{err.Error()}
		return result, err
	}

	artifacts, err := session.ExtractArtifacts(phase, res.Output)
	if err != nil {
		result.Errors = []string{err.Error()}
		return result, err
	}
	for i, artifact := range artifacts {
		if !filepath.IsAbs(artifact) {
			artifacts[i] = filepath.Join(r.opts.WorkDir, artifact)
		}
		if err := pipeline.ValidateArtifact(phase, artifacts[i]); err != nil {
			result.Errors = []string{err.Error()}
			return result, err
		}
	}

	result.Success = true
	result.Artifacts = artifacts
	return result, nil
}

// runImplementation delegates the implementation phase to the work loop and
// folds its outcome back into a phase result.
func (r *PipelineRunner) runImplementation(ctx context.Context) (pipeline.PhaseResult, error) {
	state := r.machine.State()
	summary, err := r.loop(ctx, state)

	result := pipeline.PhaseResult{
		Phase: pipeline.PhaseImplementation,
		Log: fmt.Sprintf("loop: %d iterations, %d completed, %d blocked, %d failed",
			summary.Iterations, summary.Completed, summary.Blocked, summary.Failed),
		CompletedAt: time.Now(),
	}
	if err != nil {
		result.Errors = []string{err.Error()}
		return result, err
	}
	result.Success = true
	return result, nil
}

func (r *PipelineRunner) checkpoint(ctx context.Context, failed pipeline.Phase) error {
	state := r.machine.State()
	var artifacts []string
	for _, cp := range state.Completed {
		artifacts = append(artifacts, cp.Artifacts...)
	}
	saved, err := r.store.Save(checkpoint.Checkpoint{
		State:       state,
		Artifacts:   artifacts,
		VCSMarker:   vcs.HeadMarker(ctx, r.runner, r.opts.WorkDir),
		FailedPhase: failed,
	})
	if err != nil {
		return err
	}
	r.log.Debug("checkpoint written", "id", saved.ID.String(), "phase", string(state.Phase))
	return nil
}

func failedPhaseOf(result pipeline.PhaseResult) pipeline.Phase {
	if result.Success {
		return ""
	}
	return result.Phase
}
