package config

import (
	"fmt"
	"time"

	"github.com/tha-hammer/silmari/internal/pipeline"
	"github.com/tha-hammer/silmari/internal/types"
)

// Config is the full engine configuration.
type Config struct {
	Loop       LoopConfig       `mapstructure:"loop"`
	Session    SessionConfig    `mapstructure:"session"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	Tracker    TrackerConfig    `mapstructure:"tracker"`
}

// LoopConfig bounds the autonomous loop.
type LoopConfig struct {
	// MaxIterations caps loop iterations per run.
	MaxIterations int `mapstructure:"max_iterations"`

	// MaxConsecutiveFailures halts the run once exceeded.
	MaxConsecutiveFailures int `mapstructure:"max_consecutive_failures"`

	// VerifyCommand is the independent verification command run after a
	// successful session, e.g. ["go", "test", "./..."].
	VerifyCommand []string `mapstructure:"verify_command"`

	// WorkDir is the working tree sessions and verification run in.
	WorkDir string `mapstructure:"work_dir"`
}

// SessionConfig configures external agent sessions.
type SessionConfig struct {
	AgentBinary string        `mapstructure:"agent_binary"`
	AgentArgs   []string      `mapstructure:"agent_args"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// PipelineConfig selects the autonomy mode and batch phase groups.
type PipelineConfig struct {
	Mode        string     `mapstructure:"mode"`
	BatchGroups [][]string `mapstructure:"batch_groups"`
}

// CheckpointConfig locates the store and its retention thresholds.
type CheckpointConfig struct {
	Dir        string `mapstructure:"dir"`
	MaxCount   int    `mapstructure:"max_count"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// TrackerConfig names the issue-tracker CLI.
type TrackerConfig struct {
	Binary string `mapstructure:"binary"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Loop: LoopConfig{
			MaxIterations:          100,
			MaxConsecutiveFailures: 3,
			VerifyCommand:          []string{"go", "test", "./..."},
			WorkDir:                ".",
		},
		Session: SessionConfig{
			AgentBinary: "claude",
			AgentArgs:   []string{"-p"},
			Timeout:     30 * time.Minute,
		},
		Pipeline: PipelineConfig{
			Mode: string(pipeline.ModeAutonomous),
		},
		Checkpoint: CheckpointConfig{
			Dir:        ".silmari/checkpoints",
			MaxCount:   50,
			MaxAgeDays: 30,
		},
		Tracker: TrackerConfig{
			Binary: "si",
		},
	}
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Loop.MaxIterations <= 0 {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "loop.max_iterations must be positive")
	}
	if c.Loop.MaxConsecutiveFailures <= 0 {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "loop.max_consecutive_failures must be positive")
	}
	if len(c.Loop.VerifyCommand) == 0 {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "loop.verify_command is required")
	}
	if c.Session.AgentBinary == "" {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "session.agent_binary is required")
	}
	if c.Session.Timeout <= 0 {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "session.timeout must be positive")
	}
	if !pipeline.AutonomyMode(c.Pipeline.Mode).Valid() {
		return types.NewError(types.CONFIG_VALIDATION_FAILED,
			fmt.Sprintf("pipeline.mode %q is not one of interactive, batch, autonomous", c.Pipeline.Mode))
	}
	for _, group := range c.Pipeline.BatchGroups {
		for _, name := range group {
			if !pipeline.Phase(name).Valid() {
				return types.NewError(types.CONFIG_VALIDATION_FAILED,
					fmt.Sprintf("pipeline.batch_groups contains unknown phase %q", name))
			}
		}
	}
	if c.Checkpoint.Dir == "" {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "checkpoint.dir is required")
	}
	if c.Tracker.Binary == "" {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "tracker.binary is required")
	}
	return nil
}

// BatchGroups converts the configured group names into pipeline phases.
func (c *Config) BatchGroups() [][]pipeline.Phase {
	groups := make([][]pipeline.Phase, 0, len(c.Pipeline.BatchGroups))
	for _, group := range c.Pipeline.BatchGroups {
		phases := make([]pipeline.Phase, 0, len(group))
		for _, name := range group {
			phases = append(phases, pipeline.Phase(name))
		}
		groups = append(groups, phases)
	}
	return groups
}
