package pipeline

import "time"

// PhaseResult is the outcome record of a single phase execution.
type PhaseResult struct {
	Phase         Phase     `json:"phase"`
	Success       bool      `json:"success"`
	Artifacts     []string  `json:"artifacts,omitempty"`
	Log           string    `json:"log,omitempty"`
	OpenQuestions []string  `json:"open_questions,omitempty"`
	Errors        []string  `json:"errors,omitempty"`
	CompletedAt   time.Time `json:"completed_at"`
}

// CompletedPhase records a finished phase and the artifacts it produced.
type CompletedPhase struct {
	Phase       Phase     `json:"phase"`
	Artifacts   []string  `json:"artifacts,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// State is the full pipeline/loop state captured in checkpoints. It is owned
// by the pipeline machine and the loop controller; everything else reads
// snapshots via copies.
type State struct {
	Phase      Phase            `json:"phase"`
	Status     RunStatus        `json:"status"`
	Mode       AutonomyMode     `json:"mode"`
	Completed  []CompletedPhase `json:"completed,omitempty"`
	Errors     []string         `json:"errors,omitempty"`
	Iterations int              `json:"iterations"`
	Sessions   int              `json:"sessions"`
}

// NewState returns a State positioned at the first phase in the given mode.
func NewState(mode AutonomyMode) State {
	return State{
		Phase:  FirstPhase(),
		Status: RunStatusRunning,
		Mode:   mode,
	}
}

// HasCompleted reports whether the given phase appears in the completed list.
func (s *State) HasCompleted(phase Phase) bool {
	for _, cp := range s.Completed {
		if cp.Phase == phase {
			return true
		}
	}
	return false
}

// NextIncomplete returns the first phase in order that is not in the
// completed list. Resuming from a checkpoint starts here.
func (s *State) NextIncomplete() (Phase, bool) {
	for _, phase := range phaseOrder {
		if !s.HasCompleted(phase) {
			return phase, true
		}
	}
	return "", false
}

// recordCompleted appends a completed-phase entry unless one already exists
// for the phase. Resuming twice from the same checkpoint must never duplicate
// completed-phase entries.
func (s *State) recordCompleted(phase Phase, artifacts []string, at time.Time) {
	if s.HasCompleted(phase) {
		return
	}
	s.Completed = append(s.Completed, CompletedPhase{
		Phase:       phase,
		Artifacts:   append([]string(nil), artifacts...),
		CompletedAt: at,
	})
}

// dropCompleted removes the completed-phase entry for the given phase, used
// when a human chooses to revise a phase in interactive mode.
func (s *State) dropCompleted(phase Phase) {
	kept := s.Completed[:0]
	for _, cp := range s.Completed {
		if cp.Phase != phase {
			kept = append(kept, cp)
		}
	}
	s.Completed = kept
}

// Clone returns a deep copy of the state, safe to hand to checkpointing.
func (s *State) Clone() State {
	out := *s
	out.Completed = make([]CompletedPhase, len(s.Completed))
	for i, cp := range s.Completed {
		out.Completed[i] = cp
		out.Completed[i].Artifacts = append([]string(nil), cp.Artifacts...)
	}
	out.Errors = append([]string(nil), s.Errors...)
	return out
}
