package main

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"

	"github.com/tha-hammer/silmari/internal/controller"
	"github.com/tha-hammer/silmari/internal/types"
)

func TestPrintSummary(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	printSummary(cmd, controller.Summary{
		Iterations: 5,
		Completed:  3,
		Blocked:    1,
		Failed:     1,
		HaltReason: "no ready work",
		LastItem:   "silmari-9",
	})

	out := buf.String()
	assert.Contains(t, out, "Iterations: 5")
	assert.Contains(t, out, "Completed:  3")
	assert.Contains(t, out, "Blocked:    1")
	assert.Contains(t, out, "Last item:  silmari-9")
	assert.Contains(t, out, "Halted:     no ready work")
}

func TestExitHint(t *testing.T) {
	assert.Contains(t, exitHint(types.NewError(types.LIMIT_MAX_CONSECUTIVE_FAILURES, "")), "resume")
	assert.Contains(t, exitHint(types.NewError(types.GRAPH_CYCLE_DETECTED, "")), "cycle")
	assert.Empty(t, exitHint(nil))
	assert.Empty(t, exitHint(types.NewError(types.TRACKER_COMMAND_FAILED, "")))
}
