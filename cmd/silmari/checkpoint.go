package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tha-hammer/silmari/internal/checkpoint"
)

var (
	cleanupOlderThan int
	cleanupAll       bool
	cleanupConfirm   string
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Inspect and clean up checkpoint records",
}

var checkpointListCmd = &cobra.Command{
	Use:   "list",
	Short: "List checkpoint records, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := checkpoint.NewStore(cfg.Checkpoint.Dir)
		if err != nil {
			return err
		}
		cps, err := store.List()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(cps) == 0 {
			fmt.Fprintln(out, "No checkpoints.")
			return nil
		}
		for _, cp := range cps {
			line := fmt.Sprintf("%s  %s  %-9s  iter %d",
				cp.CreatedAt.Format("2006-01-02 15:04:05"), cp.ID, cp.State.Status, cp.State.Iterations)
			if cp.Item != "" {
				line += "  " + cp.Item
			}
			fmt.Fprintln(out, line)
		}
		return nil
	},
}

var checkpointCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete checkpoint records per a retention policy",
	Long: fmt.Sprintf(`Cleanup deletes checkpoint records by age, or all of them.
Deleting everything is destructive and requires the explicit confirmation
token: --all --confirm %s`, checkpoint.DeleteAllConfirmToken),
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := checkpoint.NewStore(cfg.Checkpoint.Dir)
		if err != nil {
			return err
		}
		deleted, err := store.Cleanup(checkpoint.CleanupPolicy{
			OlderThanDays: cleanupOlderThan,
			DeleteAll:     cleanupAll,
			Confirm:       cleanupConfirm,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d checkpoint record(s).\n", deleted)
		return nil
	},
}

func init() {
	checkpointCleanupCmd.Flags().IntVar(&cleanupOlderThan, "older-than", 0, "delete records older than this many days")
	checkpointCleanupCmd.Flags().BoolVar(&cleanupAll, "all", false, "delete every record (requires --confirm)")
	checkpointCleanupCmd.Flags().StringVar(&cleanupConfirm, "confirm", "", "confirmation token for --all")

	checkpointCmd.AddCommand(checkpointListCmd)
	checkpointCmd.AddCommand(checkpointCleanupCmd)
}
