package graph

import (
	"fmt"
	"sort"

	"github.com/tha-hammer/silmari/internal/types"
)

// Graph is an in-memory dependency graph built from a tracker snapshot.
// Nodes are work items; a directed edge A -> B means A depends on B.
// The graph is immutable after construction; a fresh snapshot is loaded
// every scheduling pass rather than mutating an existing graph.
type Graph struct {
	items      map[string]*WorkItem
	dependents map[string][]string
	order      []string
}

// New builds a Graph from a snapshot of work items. It rejects duplicate ids
// and dependency references to items absent from the snapshot; cycle checking
// happens lazily in the scheduling operations so callers can still inspect a
// cyclic graph.
func New(snapshot []WorkItem) (*Graph, error) {
	g := &Graph{
		items:      make(map[string]*WorkItem, len(snapshot)),
		dependents: make(map[string][]string),
		order:      make([]string, 0, len(snapshot)),
	}

	for i := range snapshot {
		item := snapshot[i]
		if err := item.Validate(); err != nil {
			return nil, types.WrapError(types.GRAPH_UNKNOWN_ITEM, "invalid work item in snapshot", err)
		}
		if _, exists := g.items[item.ID]; exists {
			return nil, types.NewError(types.GRAPH_DUPLICATE_ITEM,
				fmt.Sprintf("duplicate work item id %q in snapshot", item.ID))
		}
		g.items[item.ID] = &item
		g.order = append(g.order, item.ID)
	}

	for id, item := range g.items {
		for _, dep := range item.DependsOn {
			if _, exists := g.items[dep]; !exists {
				return nil, types.NewError(types.GRAPH_UNKNOWN_ITEM,
					fmt.Sprintf("work item %q depends on unknown item %q", id, dep))
			}
			g.dependents[dep] = append(g.dependents[dep], id)
		}
	}

	sort.Strings(g.order)
	for dep := range g.dependents {
		sort.Strings(g.dependents[dep])
	}

	return g, nil
}

// Len returns the number of work items in the graph.
func (g *Graph) Len() int {
	return len(g.items)
}

// Item returns the work item with the given id, or false when absent.
func (g *Graph) Item(id string) (WorkItem, bool) {
	item, ok := g.items[id]
	if !ok {
		return WorkItem{}, false
	}
	return *item, true
}

// Items returns all work items sorted by id.
func (g *Graph) Items() []WorkItem {
	out := make([]WorkItem, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, *g.items[id])
	}
	return out
}

// Dependencies returns the ids the given item depends on. The slice is a copy.
func (g *Graph) Dependencies(id string) []string {
	item, ok := g.items[id]
	if !ok {
		return nil
	}
	return append([]string(nil), item.DependsOn...)
}

// Dependents returns the ids of items that depend on the given item, sorted.
func (g *Graph) Dependents(id string) []string {
	return append([]string(nil), g.dependents[id]...)
}
