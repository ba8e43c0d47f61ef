package checkpoint

import (
	"time"

	"github.com/tha-hammer/silmari/internal/pipeline"
	"github.com/tha-hammer/silmari/internal/types"
)

// Checkpoint is an immutable, timestamped snapshot of pipeline/loop state.
// Records are append-only: a checkpoint is never modified after publishing
// and is deleted only by an explicit retention-cleanup action. Each record is
// self-contained; the only cross-record references are artifact paths.
type Checkpoint struct {
	// ID uniquely identifies the record; assigned at save time.
	ID types.ID `json:"id"`

	// CreatedAt is the publish timestamp; assigned at save time.
	CreatedAt time.Time `json:"created_at"`

	// State is the full pipeline/loop state snapshot.
	State pipeline.State `json:"state"`

	// Artifacts lists the artifact paths known at checkpoint time.
	Artifacts []string `json:"artifacts,omitempty"`

	// VCSMarker is an optional commit reference stamped for audit.
	VCSMarker string `json:"vcs_marker,omitempty"`

	// FailedPhase tags the phase that was failing when this checkpoint was
	// written, empty for healthy checkpoints.
	FailedPhase pipeline.Phase `json:"failed_phase,omitempty"`

	// Item tags the work item the loop was processing, if any.
	Item string `json:"item,omitempty"`
}

// ResolveResumePhase returns the first phase not present in the checkpoint's
// completed-phase list, or false when every phase completed.
func ResolveResumePhase(cp *Checkpoint) (pipeline.Phase, bool) {
	return cp.State.NextIncomplete()
}
