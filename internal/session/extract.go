package session

import (
	"fmt"
	"regexp"

	"github.com/tha-hammer/silmari/internal/pipeline"
	"github.com/tha-hammer/silmari/internal/types"
)

// phasePatterns recognizes the artifact file paths each phase is expected to
// report in its raw output. The agent's output has no guaranteed schema, so
// this is pattern scanning at the boundary, kept out of scheduling logic.
var phasePatterns = map[pipeline.Phase]*regexp.Regexp{
	pipeline.PhaseResearch:      regexp.MustCompile(`[\w./-]*research[\w-]*\.md`),
	pipeline.PhaseDecomposition: regexp.MustCompile(`[\w./-]*decomposition[\w-]*\.md`),
	pipeline.PhasePlanning:      regexp.MustCompile(`[\w./-]*plan[\w-]*\.md`),
	pipeline.PhasePhaseSplit:    regexp.MustCompile(`[\w./-]*phase[\w-]*\.md`),
}

// ExtractArtifacts scans raw session output for the artifact paths expected
// of the given phase. It is a pure function. Phases with no expected document
// (sync, implementation) yield no artifacts and no error. A phase with an
// expected pattern that matches nothing yields EXECUTION_PARSE_FAILURE,
// distinct from execution failure.
func ExtractArtifacts(phase pipeline.Phase, output string) ([]string, error) {
	pattern, expected := phasePatterns[phase]
	if !expected {
		return nil, nil
	}

	matches := pattern.FindAllString(output, -1)
	if len(matches) == 0 {
		return nil, types.NewError(types.EXECUTION_PARSE_FAILURE,
			fmt.Sprintf("no %s artifact path found in session output", phase))
	}

	// Dedupe while preserving first-seen order.
	seen := make(map[string]bool, len(matches))
	artifacts := make([]string, 0, len(matches))
	for _, m := range matches {
		if seen[m] {
			continue
		}
		seen[m] = true
		artifacts = append(artifacts, m)
	}
	return artifacts, nil
}
