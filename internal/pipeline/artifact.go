package pipeline

import (
	"fmt"
	"os"
	"strings"

	"github.com/tha-hammer/silmari/internal/types"
)

// phaseMarkers maps each phase to the heading its output document must carry.
// An externally supplied artifact is only accepted for a phase skip when the
// document passes this format check; there is no silent fallback.
var phaseMarkers = map[Phase]string{
	PhaseResearch:       "# Research",
	PhaseDecomposition:  "# Decomposition",
	PhasePlanning:       "# Plan",
	PhasePhaseSplit:     "# Phase",
	PhaseSync:           "# Sync",
	PhaseImplementation: "# Implementation",
}

// ValidateArtifact checks that an externally supplied phase artifact exists,
// is non-empty, and carries the document marker expected for the phase.
// Any failure is a fatal ValidationError.
func ValidateArtifact(phase Phase, path string) error {
	if !phase.Valid() {
		return types.NewError(types.VALIDATION_SCHEMA_MISMATCH,
			fmt.Sprintf("unknown phase %q", phase))
	}
	if path == "" {
		return types.NewError(types.VALIDATION_SCHEMA_MISMATCH,
			fmt.Sprintf("phase %s requires an artifact path", phase))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return types.WrapError(types.VALIDATION_SCHEMA_MISMATCH,
			fmt.Sprintf("artifact for phase %s is not readable: %s", phase, path), err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return types.NewError(types.VALIDATION_SCHEMA_MISMATCH,
			fmt.Sprintf("artifact for phase %s is empty: %s", phase, path))
	}

	marker := phaseMarkers[phase]
	if !strings.Contains(string(data), marker) {
		return types.NewError(types.VALIDATION_SCHEMA_MISMATCH,
			fmt.Sprintf("artifact for phase %s is missing required marker %q: %s", phase, marker, path))
	}

	return nil
}
