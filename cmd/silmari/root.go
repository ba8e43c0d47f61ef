package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tha-hammer/silmari/internal/config"
)

var (
	configFile string
	verbose    bool

	// cfg is populated by loadConfig before any subcommand runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "silmari",
	Short: "Silmari - autonomous work scheduler and pipeline engine",
	Long: `Silmari drives an AI coding agent through tracker-managed work:
it schedules ready items by dependency and priority, runs one agent
session per item, verifies each result independently, and checkpoints
after every iteration so any run can resume where it stopped.`,
	PersistentPreRunE: loadConfig,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

// Execute runs the root command with SIGINT/SIGTERM wired to context
// cancellation, so an interrupt lands as a checkpointed halt rather than a
// dead process.
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to config file (YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(checkpointCmd)
}

// loadConfig loads and validates configuration before any command runs. A
// missing --config falls back to ./silmari.yaml when present, else defaults.
func loadConfig(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "help" {
		return nil
	}

	path := configFile
	if path == "" {
		if _, err := os.Stat("silmari.yaml"); err == nil {
			path = "silmari.yaml"
		}
	}

	loaded, err := config.Load(path)
	if err != nil {
		return err
	}
	cfg = loaded

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}
