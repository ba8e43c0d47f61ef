package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tha-hammer/silmari/internal/checkpoint"
	"github.com/tha-hammer/silmari/internal/graph"
	"github.com/tha-hammer/silmari/internal/session"
	"github.com/tha-hammer/silmari/internal/tracker"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show ready work and the latest checkpoint",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		heading := color.New(color.Bold)

		runner := session.NewExecRunner()
		tr := tracker.NewCLI(runner, cfg.Tracker.Binary, cfg.Loop.WorkDir)

		g, err := tracker.Snapshot(cmd.Context(), tr)
		if err != nil {
			return err
		}
		ready, err := graph.ReadySet(g)
		if err != nil {
			return err
		}

		heading.Fprintf(out, "Work items: %d tracked, %d ready\n", g.Len(), len(ready))
		for _, item := range ready {
			fmt.Fprintf(out, "  [P%d %s] %s: %s\n",
				item.Priority, graph.ComplexityOf(g, item.ID), item.ID, item.Title)
		}

		store, err := checkpoint.NewStore(cfg.Checkpoint.Dir)
		if err != nil {
			return err
		}
		cp, err := store.FindLatestResumable()
		if err != nil {
			return err
		}
		fmt.Fprintln(out)
		if cp == nil {
			fmt.Fprintln(out, "No checkpoints.")
			return nil
		}
		heading.Fprintln(out, "Latest checkpoint")
		fmt.Fprintf(out, "  ID:         %s\n", cp.ID)
		fmt.Fprintf(out, "  Created:    %s\n", cp.CreatedAt.Format("2006-01-02 15:04:05 MST"))
		fmt.Fprintf(out, "  Status:     %s\n", cp.State.Status)
		fmt.Fprintf(out, "  Iterations: %d\n", cp.State.Iterations)
		for _, phase := range cp.State.Completed {
			fmt.Fprintf(out, "  Phase done: %s", phase.Phase)
			if len(phase.Artifacts) > 0 {
				fmt.Fprintf(out, " (%s)", strings.Join(phase.Artifacts, ", "))
			}
			fmt.Fprintln(out)
		}
		if cp.Item != "" {
			fmt.Fprintf(out, "  Last item:  %s\n", cp.Item)
		}
		if cp.VCSMarker != "" {
			fmt.Fprintf(out, "  VCS head:   %s\n", cp.VCSMarker)
		}
		return nil
	},
}
