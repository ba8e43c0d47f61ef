package pipeline

import (
	"fmt"
	"time"

	"github.com/tha-hammer/silmari/internal/types"
)

// PauseAction is a human choice offered when the pipeline pauses.
type PauseAction string

const (
	// ActionContinue proceeds to the next phase.
	ActionContinue PauseAction = "continue"

	// ActionRevise re-runs the phase that just completed with added context.
	ActionRevise PauseAction = "revise"

	// ActionRestart resets the pipeline to the first phase.
	ActionRestart PauseAction = "restart"

	// ActionExit halts the run.
	ActionExit PauseAction = "exit"
)

// PauseDecider supplies the human decision at a pause point. The CLI wires a
// terminal prompter; tests wire scripted deciders. Autonomous mode never
// consults it.
type PauseDecider interface {
	Decide(phase Phase, result PhaseResult) (PauseAction, error)
}

// Decision tells the caller what to do after a phase transition.
type Decision string

const (
	// DecisionContinue means proceed with the machine's current phase.
	DecisionContinue Decision = "continue"

	// DecisionDone means the pipeline reached its terminal completed state.
	DecisionDone Decision = "done"

	// DecisionHalt means stop and checkpoint; the run is failed or was exited.
	DecisionHalt Decision = "halt"
)

// Machine drives the ordered phase transitions of one pipeline run. It owns
// the State exclusively; callers observe it through State() copies.
type Machine struct {
	state   State
	decider PauseDecider

	// batchGroupEnds marks the phases after which batch mode pauses.
	batchGroupEnds map[Phase]bool
}

// MachineOption customizes a Machine.
type MachineOption func(*Machine)

// WithDecider sets the pause decider used by interactive and batch modes.
func WithDecider(d PauseDecider) MachineOption {
	return func(m *Machine) { m.decider = d }
}

// WithBatchGroups declares the phase groups for batch mode. A pause point is
// placed after the last phase of each group.
func WithBatchGroups(groups [][]Phase) MachineOption {
	return func(m *Machine) {
		m.batchGroupEnds = make(map[Phase]bool)
		for _, group := range groups {
			if len(group) > 0 {
				m.batchGroupEnds[group[len(group)-1]] = true
			}
		}
	}
}

// NewMachine creates a pipeline machine positioned at the first phase.
func NewMachine(mode AutonomyMode, opts ...MachineOption) (*Machine, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("unknown autonomy mode %q", mode)
	}
	m := &Machine{state: NewState(mode)}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// ResumeMachine creates a machine from a checkpointed state, positioned at
// the first incomplete phase.
func ResumeMachine(state State, opts ...MachineOption) (*Machine, error) {
	if !state.Mode.Valid() {
		return nil, fmt.Errorf("checkpointed state has unknown autonomy mode %q", state.Mode)
	}
	m := &Machine{state: state.Clone()}
	for _, opt := range opts {
		opt(m)
	}
	if next, ok := m.state.NextIncomplete(); ok {
		m.state.Phase = next
		m.state.Status = RunStatusRunning
	} else {
		m.state.Status = RunStatusCompleted
	}
	return m, nil
}

// State returns a copy of the current pipeline state.
func (m *Machine) State() State {
	return m.state.Clone()
}

// Current returns the phase the machine is positioned at.
func (m *Machine) Current() Phase {
	return m.state.Phase
}

// Done reports whether the run reached a terminal state.
func (m *Machine) Done() bool {
	return m.state.Status != RunStatusRunning
}

// Skip honors an externally supplied artifact for the current phase,
// validating it before recording the phase as completed and advancing.
// Validation failure is fatal and leaves the machine unchanged.
func (m *Machine) Skip(artifactPath string) error {
	if m.Done() {
		return types.NewError(types.VALIDATION_PHASE_ORDER,
			fmt.Sprintf("cannot skip phase on a %s pipeline", m.state.Status))
	}
	phase := m.state.Phase
	if err := ValidateArtifact(phase, artifactPath); err != nil {
		return err
	}

	m.state.recordCompleted(phase, []string{artifactPath}, time.Now())
	m.advance()
	return nil
}

// CompletePhase records the result of executing the machine's current phase
// and transitions accordingly. A failed result is recorded, the run moves to
// failed, and the caller gets DecisionHalt; there is no automatic retry and
// partial output is never forwarded. A successful result advances the phase
// and consults the pausing policy of the autonomy mode.
func (m *Machine) CompletePhase(result PhaseResult) (Decision, error) {
	if m.Done() {
		return DecisionHalt, types.NewError(types.VALIDATION_PHASE_ORDER,
			fmt.Sprintf("pipeline already %s", m.state.Status))
	}
	if result.Phase != m.state.Phase {
		return DecisionHalt, types.NewError(types.VALIDATION_PHASE_ORDER,
			fmt.Sprintf("result for phase %s but pipeline is at %s", result.Phase, m.state.Phase))
	}

	if !result.Success {
		for _, msg := range result.Errors {
			m.state.Errors = append(m.state.Errors, fmt.Sprintf("%s: %s", result.Phase, msg))
		}
		if len(result.Errors) == 0 {
			m.state.Errors = append(m.state.Errors, fmt.Sprintf("%s: phase failed", result.Phase))
		}
		m.state.Status = RunStatusFailed
		return DecisionHalt, nil
	}

	at := result.CompletedAt
	if at.IsZero() {
		at = time.Now()
	}
	m.state.recordCompleted(result.Phase, result.Artifacts, at)
	finishedPhase := result.Phase
	m.advance()

	if m.state.Status == RunStatusCompleted {
		return DecisionDone, nil
	}

	return m.applyPausePolicy(finishedPhase, result)
}

// advance moves the machine to the next phase, or to completed after the last.
func (m *Machine) advance() {
	if next, ok := m.state.Phase.Next(); ok {
		m.state.Phase = next
		return
	}
	m.state.Status = RunStatusCompleted
}

// applyPausePolicy consults the autonomy mode after a successful phase.
func (m *Machine) applyPausePolicy(finished Phase, result PhaseResult) (Decision, error) {
	switch m.state.Mode {
	case ModeAutonomous:
		return DecisionContinue, nil
	case ModeBatch:
		if !m.batchGroupEnds[finished] {
			return DecisionContinue, nil
		}
	}

	if m.decider == nil {
		// No human attached; treat the pause point as a continue.
		return DecisionContinue, nil
	}

	action, err := m.decider.Decide(finished, result)
	if err != nil {
		return DecisionHalt, fmt.Errorf("pause decision failed: %w", err)
	}

	switch action {
	case ActionContinue:
		return DecisionContinue, nil
	case ActionRevise:
		m.state.dropCompleted(finished)
		m.state.Phase = finished
		return DecisionContinue, nil
	case ActionRestart:
		mode := m.state.Mode
		iterations, sessions := m.state.Iterations, m.state.Sessions
		m.state = NewState(mode)
		m.state.Iterations, m.state.Sessions = iterations, sessions
		return DecisionContinue, nil
	case ActionExit:
		return DecisionHalt, nil
	default:
		return DecisionHalt, fmt.Errorf("unknown pause action %q", action)
	}
}

// RecordIteration increments the loop iteration counter carried in the state.
func (m *Machine) RecordIteration() {
	m.state.Iterations++
}

// RecordSession increments the external session counter carried in the state.
func (m *Machine) RecordSession() {
	m.state.Sessions++
}
