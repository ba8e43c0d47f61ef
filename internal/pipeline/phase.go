package pipeline

// Phase is one ordered stage of the delivery pipeline.
type Phase string

const (
	PhaseResearch       Phase = "research"
	PhaseDecomposition  Phase = "decomposition"
	PhasePlanning       Phase = "planning"
	PhasePhaseSplit     Phase = "phase_split"
	PhaseSync           Phase = "sync"
	PhaseImplementation Phase = "implementation"
)

// phaseOrder is the canonical execution order. Autonomy modes only change
// pausing, never this order.
var phaseOrder = []Phase{
	PhaseResearch,
	PhaseDecomposition,
	PhasePlanning,
	PhasePhaseSplit,
	PhaseSync,
	PhaseImplementation,
}

// Phases returns the ordered list of pipeline phases.
func Phases() []Phase {
	return append([]Phase(nil), phaseOrder...)
}

// FirstPhase returns the first phase of the pipeline.
func FirstPhase() Phase {
	return phaseOrder[0]
}

// Index returns the position of p in the phase order, or -1 when unknown.
func (p Phase) Index() int {
	for i, phase := range phaseOrder {
		if phase == p {
			return i
		}
	}
	return -1
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	return p.Index() >= 0
}

// Next returns the phase following p, or false when p is the last phase.
func (p Phase) Next() (Phase, bool) {
	i := p.Index()
	if i < 0 || i+1 >= len(phaseOrder) {
		return "", false
	}
	return phaseOrder[i+1], true
}

// RunStatus is the terminal-state tracking for a pipeline run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// AutonomyMode governs how often execution pauses for human confirmation.
// It is strictly a pausing policy.
type AutonomyMode string

const (
	// ModeInteractive pauses after every phase.
	ModeInteractive AutonomyMode = "interactive"

	// ModeBatch pauses only between declared phase groups.
	ModeBatch AutonomyMode = "batch"

	// ModeAutonomous never pauses; a failure transitions directly to failed.
	ModeAutonomous AutonomyMode = "autonomous"
)

// Valid reports whether m is a known autonomy mode.
func (m AutonomyMode) Valid() bool {
	switch m {
	case ModeInteractive, ModeBatch, ModeAutonomous:
		return true
	}
	return false
}
