package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/tha-hammer/silmari/internal/pipeline"
)

// terminalDecider prompts a human at pipeline pause points. EOF on input is
// treated as exit so a closed stdin cannot spin the prompt.
type terminalDecider struct {
	in  *bufio.Scanner
	out io.Writer
}

func newTerminalDecider(in io.Reader, out io.Writer) *terminalDecider {
	return &terminalDecider{in: bufio.NewScanner(in), out: out}
}

func (d *terminalDecider) Decide(phase pipeline.Phase, result pipeline.PhaseResult) (pipeline.PauseAction, error) {
	bold := color.New(color.Bold)
	bold.Fprintf(d.out, "\nPhase %s completed.\n", phase)
	for _, artifact := range result.Artifacts {
		fmt.Fprintf(d.out, "  artifact: %s\n", artifact)
	}
	for _, q := range result.OpenQuestions {
		color.New(color.FgYellow).Fprintf(d.out, "  open question: %s\n", q)
	}

	for {
		fmt.Fprint(d.out, "[c]ontinue, [r]evise this phase, [s]tart over, [e]xit? ")
		if !d.in.Scan() {
			fmt.Fprintln(d.out)
			return pipeline.ActionExit, d.in.Err()
		}
		switch strings.ToLower(strings.TrimSpace(d.in.Text())) {
		case "c", "continue":
			return pipeline.ActionContinue, nil
		case "r", "revise":
			return pipeline.ActionRevise, nil
		case "s", "start over", "restart":
			return pipeline.ActionRestart, nil
		case "e", "exit", "q", "quit":
			return pipeline.ActionExit, nil
		}
		fmt.Fprintln(d.out, "Unrecognized choice.")
	}
}
