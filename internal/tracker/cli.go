package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tha-hammer/silmari/internal/graph"
	"github.com/tha-hammer/silmari/internal/session"
	"github.com/tha-hammer/silmari/internal/types"
)

// CLI adapts a tracker command-line binary to the Tracker interface, going
// through the shared command runner so subprocess handling stays uniform.
// The binary is expected to support --json output for read commands.
type CLI struct {
	runner session.Runner
	binary string
	dir    string
}

// NewCLI creates a CLI-backed tracker using the given binary, run in dir.
func NewCLI(runner session.Runner, binary, dir string) *CLI {
	return &CLI{runner: runner, binary: binary, dir: dir}
}

// itemRecord is the loosely-typed wire shape of a tracker item. Conversion
// into graph.WorkItem happens here at the boundary; untyped maps never reach
// core logic.
type itemRecord struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Type      string   `json:"type"`
	Status    string   `json:"status"`
	Priority  int      `json:"priority"`
	DependsOn []string `json:"depends_on"`
	Category  string   `json:"category"`
}

func (r itemRecord) toWorkItem() graph.WorkItem {
	return graph.WorkItem{
		ID:        r.ID,
		Title:     r.Title,
		Type:      graph.ItemType(r.Type),
		Status:    graph.ItemStatus(r.Status),
		Priority:  graph.Priority(r.Priority),
		DependsOn: r.DependsOn,
		Category:  r.Category,
	}
}

// run invokes the tracker binary. A non-zero exit is a tracker failure,
// never conflated with an empty result.
func (c *CLI) run(ctx context.Context, args ...string) (string, error) {
	result, err := c.runner.Run(ctx, session.Command{
		Name: c.binary,
		Args: args,
		Dir:  c.dir,
	})
	if err != nil {
		detail := strings.TrimSpace(result.Stderr)
		if strings.Contains(detail, "not found") {
			return "", types.WrapError(types.TRACKER_ITEM_NOT_FOUND,
				fmt.Sprintf("%s %s: %s", c.binary, strings.Join(args, " "), detail), err)
		}
		return "", types.WrapError(types.TRACKER_COMMAND_FAILED,
			fmt.Sprintf("%s %s failed: %s", c.binary, strings.Join(args, " "), detail), err)
	}
	return result.Stdout, nil
}

func parseItems(out string) ([]graph.WorkItem, error) {
	trimmed := strings.TrimSpace(out)
	if trimmed == "" {
		return []graph.WorkItem{}, nil
	}
	var records []itemRecord
	if err := json.Unmarshal([]byte(trimmed), &records); err != nil {
		return nil, types.WrapError(types.TRACKER_PARSE_FAILED, "tracker output is not a JSON item list", err)
	}
	items := make([]graph.WorkItem, 0, len(records))
	for _, r := range records {
		items = append(items, r.toWorkItem())
	}
	return items, nil
}

// List implements Tracker.
func (c *CLI) List(ctx context.Context, status graph.ItemStatus) ([]graph.WorkItem, error) {
	args := []string{"list", "--json"}
	if status != "" {
		args = append(args, "--status", string(status))
	}
	out, err := c.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	return parseItems(out)
}

// Show implements Tracker.
func (c *CLI) Show(ctx context.Context, id string) (graph.WorkItem, error) {
	out, err := c.run(ctx, "show", id, "--json")
	if err != nil {
		return graph.WorkItem{}, err
	}
	var record itemRecord
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &record); err != nil {
		return graph.WorkItem{}, types.WrapError(types.TRACKER_PARSE_FAILED,
			fmt.Sprintf("tracker output for item %s is not a JSON item", id), err)
	}
	if record.ID == "" {
		return graph.WorkItem{}, types.NewError(types.TRACKER_ITEM_NOT_FOUND,
			fmt.Sprintf("tracker returned no item for id %s", id))
	}
	return record.toWorkItem(), nil
}

// Create implements Tracker.
func (c *CLI) Create(ctx context.Context, itemType graph.ItemType, title string, priority graph.Priority) (string, error) {
	out, err := c.run(ctx, "create",
		"--type", string(itemType),
		"--title", title,
		"--priority", strconv.Itoa(int(priority)),
		"--json")
	if err != nil {
		return "", err
	}
	var record itemRecord
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &record); err != nil {
		return "", types.WrapError(types.TRACKER_PARSE_FAILED, "tracker create output is not a JSON item", err)
	}
	if record.ID == "" {
		return "", types.NewError(types.TRACKER_PARSE_FAILED, "tracker create returned no item id")
	}
	return record.ID, nil
}

// UpdateStatus implements Tracker.
func (c *CLI) UpdateStatus(ctx context.Context, id string, status graph.ItemStatus) error {
	_, err := c.run(ctx, "update", id, "--status", string(status))
	return err
}

// AddDependency implements Tracker.
func (c *CLI) AddDependency(ctx context.Context, id, dependsOn string) error {
	_, err := c.run(ctx, "dep", "add", id, dependsOn)
	return err
}

// Close implements Tracker.
func (c *CLI) Close(ctx context.Context, id, reason string) error {
	_, err := c.run(ctx, "close", id, "--reason", reason)
	return err
}

// Block implements Tracker.
func (c *CLI) Block(ctx context.Context, id, reason string) error {
	_, err := c.run(ctx, "update", id, "--status", string(graph.StatusBlocked), "--reason", reason)
	return err
}

// Ready implements Tracker using the tracker's native ready query.
func (c *CLI) Ready(ctx context.Context) ([]graph.WorkItem, error) {
	out, err := c.run(ctx, "ready", "--json")
	if err != nil {
		return nil, err
	}
	return parseItems(out)
}

// Sync implements Tracker.
func (c *CLI) Sync(ctx context.Context) error {
	_, err := c.run(ctx, "sync")
	return err
}

var _ Tracker = (*CLI)(nil)
