package tracker

import (
	"context"

	"github.com/tha-hammer/silmari/internal/graph"
)

// Tracker is the issue-tracker collaborator. The engine consumes it, never
// reimplements it: the tracker owns work items and their statuses, and is the
// sole source of truth (there is no local work manifest alongside it). Every
// method surfaces failure distinctly from an empty result.
type Tracker interface {
	// List returns work items, optionally filtered by status. An empty
	// status means all items. An empty tracker yields an empty slice, nil.
	List(ctx context.Context, status graph.ItemStatus) ([]graph.WorkItem, error)

	// Show returns one item with its dependency edges.
	Show(ctx context.Context, id string) (graph.WorkItem, error)

	// Create adds a new item and returns its tracker-assigned id.
	Create(ctx context.Context, itemType graph.ItemType, title string, priority graph.Priority) (string, error)

	// UpdateStatus moves an item to the given status.
	UpdateStatus(ctx context.Context, id string, status graph.ItemStatus) error

	// AddDependency records that id depends on dependsOn.
	AddDependency(ctx context.Context, id, dependsOn string) error

	// Close closes an item with a reason.
	Close(ctx context.Context, id, reason string) error

	// Block moves an item to blocked with the failure reason attached, so
	// the next scheduling pass naturally excludes it until unblocked.
	Block(ctx context.Context, id, reason string) error

	// Ready is the tracker's native ready query.
	Ready(ctx context.Context) ([]graph.WorkItem, error)

	// Sync pushes and pulls tracker state with its remote, when one exists.
	Sync(ctx context.Context) error
}

// Snapshot loads a fresh full snapshot from the tracker and builds the
// dependency graph from it. Callers re-snapshot every iteration rather than
// caching, so readiness decisions never act on stale data.
func Snapshot(ctx context.Context, tr Tracker) (*graph.Graph, error) {
	items, err := tr.List(ctx, "")
	if err != nil {
		return nil, err
	}
	return graph.New(items)
}
