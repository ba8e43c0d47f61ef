package controller

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tha-hammer/silmari/internal/checkpoint"
	"github.com/tha-hammer/silmari/internal/pipeline"
	"github.com/tha-hammer/silmari/internal/session"
	"github.com/tha-hammer/silmari/internal/types"
)

// queueExecutor returns scripted outputs in order, one per session.
type queueExecutor struct {
	outputs []string
	calls   int
}

func (q *queueExecutor) Execute(context.Context, session.Payload) (session.Result, error) {
	if q.calls >= len(q.outputs) {
		return session.Result{}, types.NewError(types.EXECUTION_SPAWN_FAILED, "unexpected session")
	}
	out := q.outputs[q.calls]
	q.calls++
	return session.Result{Success: true, Output: out}, nil
}

func writeArtifact(t *testing.T, dir, name, marker string) {
	t.Helper()
	content := marker + "\n\nbody\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

// documentOutputs writes the four phase documents into dir and returns the
// scripted session outputs referencing them, plus a sync-phase report.
func documentOutputs(t *testing.T, dir string) []string {
	t.Helper()
	writeArtifact(t, dir, "research.md", "# Research")
	writeArtifact(t, dir, "decomposition.md", "# Decomposition")
	writeArtifact(t, dir, "plan.md", "# Plan")
	writeArtifact(t, dir, "phases.md", "# Phase")
	return []string{
		"findings written to research.md",
		"breakdown written to decomposition.md",
		"wrote plan.md",
		"split written to phases.md",
		"created 4 tracker items",
	}
}

func pipelineRunner(t *testing.T, m *pipeline.Machine, ex SessionExecutor, workDir string, loop LoopFunc) (*PipelineRunner, *checkpoint.Store) {
	t.Helper()
	store, err := checkpoint.NewStore(t.TempDir())
	require.NoError(t, err)
	opts := Options{
		WorkDir: workDir,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return NewPipelineRunner(m, ex, &fakeRunner{}, store, opts, loop), store
}

func TestPipelineRunsAllPhases(t *testing.T) {
	dir := t.TempDir()
	ex := &queueExecutor{outputs: documentOutputs(t, dir)}
	m, err := pipeline.NewMachine(pipeline.ModeAutonomous)
	require.NoError(t, err)

	loopRan := false
	loop := func(context.Context, pipeline.State) (Summary, error) {
		loopRan = true
		return Summary{Completed: 2, Iterations: 2}, nil
	}

	r, store := pipelineRunner(t, m, ex, dir, loop)
	state, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, pipeline.RunStatusCompleted, state.Status)
	assert.True(t, loopRan)
	assert.Equal(t, 5, ex.calls)
	assert.Equal(t, 5, state.Sessions)
	for _, phase := range pipeline.Phases() {
		assert.True(t, state.HasCompleted(phase), "phase %s should be completed", phase)
	}

	// One checkpoint per phase transition.
	cps, err := store.List()
	require.NoError(t, err)
	assert.Len(t, cps, 6)
	assert.Contains(t, cps[0].Artifacts, filepath.Join(dir, "plan.md"))
}

func TestPipelineHaltsOnParseFailure(t *testing.T) {
	ex := &queueExecutor{outputs: []string{"I did some research but wrote nothing down"}}
	m, err := pipeline.NewMachine(pipeline.ModeAutonomous)
	require.NoError(t, err)

	r, store := pipelineRunner(t, m, ex, t.TempDir(), nil)
	state, err := r.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, types.EXECUTION_PARSE_FAILURE, types.CodeOf(err))
	assert.Equal(t, pipeline.RunStatusFailed, state.Status)
	assert.False(t, state.HasCompleted(pipeline.PhaseResearch))

	cps, lerr := store.List()
	require.NoError(t, lerr)
	require.NotEmpty(t, cps)
	assert.Equal(t, pipeline.PhaseResearch, cps[0].FailedPhase)
}

func TestPipelineHaltsOnInvalidArtifact(t *testing.T) {
	// The session names a document that was never written.
	ex := &queueExecutor{outputs: []string{"findings written to research.md"}}
	m, err := pipeline.NewMachine(pipeline.ModeAutonomous)
	require.NoError(t, err)

	r, _ := pipelineRunner(t, m, ex, t.TempDir(), nil)
	_, err = r.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, types.VALIDATION_SCHEMA_MISMATCH, types.CodeOf(err))
}

func TestPipelineInteractiveExit(t *testing.T) {
	dir := t.TempDir()
	ex := &queueExecutor{outputs: documentOutputs(t, dir)}
	m, err := pipeline.NewMachine(pipeline.ModeInteractive,
		pipeline.WithDecider(scriptedActions(pipeline.ActionContinue, pipeline.ActionExit)))
	require.NoError(t, err)

	r, _ := pipelineRunner(t, m, ex, dir, nil)
	state, err := r.Run(context.Background())
	require.NoError(t, err)

	// Exited after the second phase: nothing later ran.
	assert.True(t, state.HasCompleted(pipeline.PhaseDecomposition))
	assert.False(t, state.HasCompleted(pipeline.PhasePlanning))
	assert.Equal(t, 2, ex.calls)
}

func TestPipelineResumeSkipsCompletedPhases(t *testing.T) {
	dir := t.TempDir()
	outputs := documentOutputs(t, dir)

	prev := pipeline.NewState(pipeline.ModeAutonomous)
	prev.Completed = []pipeline.CompletedPhase{
		{Phase: pipeline.PhaseResearch},
		{Phase: pipeline.PhaseDecomposition},
	}

	m, err := pipeline.ResumeMachine(prev)
	require.NoError(t, err)
	require.Equal(t, pipeline.PhasePlanning, m.Current())

	// Only planning, phase split, sync and the loop remain.
	ex := &queueExecutor{outputs: outputs[2:]}
	loop := func(context.Context, pipeline.State) (Summary, error) { return Summary{}, nil }
	r, _ := pipelineRunner(t, m, ex, dir, loop)

	state, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pipeline.RunStatusCompleted, state.Status)
	assert.Equal(t, 3, ex.calls)
}

func TestPipelineImplementationFailurePropagates(t *testing.T) {
	dir := t.TempDir()
	ex := &queueExecutor{outputs: documentOutputs(t, dir)}
	m, err := pipeline.NewMachine(pipeline.ModeAutonomous)
	require.NoError(t, err)

	loop := func(context.Context, pipeline.State) (Summary, error) {
		return Summary{}, types.NewError(types.LIMIT_MAX_CONSECUTIVE_FAILURES, "3 consecutive failures")
	}
	r, _ := pipelineRunner(t, m, ex, dir, loop)

	state, err := r.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, types.LIMIT_MAX_CONSECUTIVE_FAILURES, types.CodeOf(err))
	assert.Equal(t, pipeline.RunStatusFailed, state.Status)
}

func TestPipelineSkipValidatesArtifact(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "research.md", "# Research")

	m, err := pipeline.NewMachine(pipeline.ModeAutonomous)
	require.NoError(t, err)
	r, store := pipelineRunner(t, m, &queueExecutor{}, dir, nil)

	require.Error(t, r.Skip(filepath.Join(dir, "missing.md")))
	require.Equal(t, pipeline.PhaseResearch, m.Current())

	require.NoError(t, r.Skip(filepath.Join(dir, "research.md")))
	assert.Equal(t, pipeline.PhaseDecomposition, m.Current())

	cps, err := store.List()
	require.NoError(t, err)
	assert.Len(t, cps, 1)
}

// scriptedActions builds a PauseDecider returning the given actions in order.
func scriptedActions(actions ...pipeline.PauseAction) pipeline.PauseDecider {
	return &actionScript{actions: actions}
}

type actionScript struct {
	actions []pipeline.PauseAction
	next    int
}

func (s *actionScript) Decide(pipeline.Phase, pipeline.PhaseResult) (pipeline.PauseAction, error) {
	if s.next >= len(s.actions) {
		return pipeline.ActionExit, nil
	}
	action := s.actions[s.next]
	s.next++
	return action, nil
}
