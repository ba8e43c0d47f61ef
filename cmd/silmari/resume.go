package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tha-hammer/silmari/internal/checkpoint"
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume the loop from the latest resumable checkpoint",
	Long: `Resume finds the most recent checkpoint that passes integrity
validation, reports where it left off, and continues the loop with the
checkpointed counters. Corrupt or version-mismatched records are skipped,
never resumed from.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := checkpoint.NewStore(cfg.Checkpoint.Dir)
		if err != nil {
			return err
		}

		cp, err := store.FindLatestResumable()
		if err != nil {
			return err
		}
		if cp == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No resumable checkpoint found; use 'silmari run' to start fresh.")
			return nil
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Resuming from checkpoint %s (created %s)\n", cp.ID, cp.CreatedAt.Format("2006-01-02 15:04:05 MST"))
		if phase, ok := checkpoint.ResolveResumePhase(cp); ok {
			fmt.Fprintf(out, "Next incomplete phase: %s\n", phase)
		}
		if cp.Item != "" {
			fmt.Fprintf(out, "Last item: %s\n", cp.Item)
		}

		state := cp.State.Clone()
		ctrl, _, err := buildController(&state)
		if err != nil {
			return err
		}
		summary, err := ctrl.Run(cmd.Context())
		printSummary(cmd, summary)
		if hint := exitHint(err); hint != "" {
			fmt.Fprintf(out, "  Hint:       %s\n", hint)
		}
		return err
	},
}
