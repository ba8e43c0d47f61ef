// Package vcs stamps checkpoints with a version-control marker for audit.
// The marker is best-effort only; checkpointing never depends on it.
package vcs

import (
	"context"
	"strings"

	"github.com/tha-hammer/silmari/internal/session"
)

// HeadMarker returns the current commit hash of the repository at dir, or an
// empty string when the directory is not a repository or git is unavailable.
func HeadMarker(ctx context.Context, runner session.Runner, dir string) string {
	result, err := runner.Run(ctx, session.Command{
		Name: "git",
		Args: []string{"rev-parse", "HEAD"},
		Dir:  dir,
	})
	if err != nil {
		return ""
	}
	return strings.TrimSpace(result.Stdout)
}
