package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tha-hammer/silmari/internal/types"
)

// Complexity score weights and thresholds. Dependents weigh double because an
// item blocking many others carries outsized schedule risk.
const (
	dependencyWeight = 1
	dependentWeight  = 2

	complexityHighThreshold   = 5
	complexityMediumThreshold = 2
)

// DetectCycles finds every work item participating in a dependency cycle
// using depth-first traversal with three-color marking. A self-dependency is
// a cycle of length one. Returns the sorted set of involved ids, empty when
// the graph is acyclic.
func DetectCycles(g *Graph) []string {
	const (
		white = 0 // unvisited
		gray  = 1 // on the current DFS path
		black = 2 // fully explored
	)

	color := make(map[string]int, g.Len())
	inCycle := make(map[string]bool)
	var path []string

	var dfs func(id string)
	dfs = func(id string) {
		color[id] = gray
		path = append(path, id)

		for _, dep := range g.Dependencies(id) {
			switch color[dep] {
			case gray:
				// Back edge: everything on the path from dep onward cycles.
				for i := len(path) - 1; i >= 0; i-- {
					inCycle[path[i]] = true
					if path[i] == dep {
						break
					}
				}
			case white:
				dfs(dep)
			}
		}

		path = path[:len(path)-1]
		color[id] = black
	}

	for _, id := range g.order {
		if color[id] == white {
			dfs(id)
		}
	}

	ids := make([]string, 0, len(inCycle))
	for id := range inCycle {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// cycleError builds the fatal error naming the cycling ids.
func cycleError(ids []string) error {
	return types.NewError(types.GRAPH_CYCLE_DETECTED,
		fmt.Sprintf("dependency cycle involving: %s", strings.Join(ids, ", ")))
}

// TopologicalOrder returns a deterministic linearization of the graph using
// Kahn's algorithm. Among items whose dependencies are all placed, ties break
// by ascending priority then ascending id, so the order is stable across
// runs. Refuses to produce a partial order for cyclic graphs.
func TopologicalOrder(g *Graph) ([]string, error) {
	if cycling := DetectCycles(g); len(cycling) > 0 {
		return nil, cycleError(cycling)
	}

	inDegree := make(map[string]int, g.Len())
	for _, id := range g.order {
		inDegree[id] = len(g.Dependencies(id))
	}

	frontier := make([]string, 0, g.Len())
	for _, id := range g.order {
		if inDegree[id] == 0 {
			frontier = append(frontier, id)
		}
	}

	less := func(a, b string) bool {
		ia, _ := g.Item(a)
		ib, _ := g.Item(b)
		if ia.Priority != ib.Priority {
			return ia.Priority < ib.Priority
		}
		return a < b
	}

	order := make([]string, 0, g.Len())
	for len(frontier) > 0 {
		sort.Slice(frontier, func(i, j int) bool { return less(frontier[i], frontier[j]) })
		next := frontier[0]
		frontier = frontier[1:]
		order = append(order, next)

		for _, dependent := range g.Dependents(next) {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				frontier = append(frontier, dependent)
			}
		}
	}

	return order, nil
}

// ReadySet returns the work items eligible to start now: open, not blocked,
// and with every dependency closed. The result is sorted by ascending
// priority, then descending complexity, then ascending id, so declared
// priority wins first and riskier items go earlier within a priority band.
// Refuses to run on a cyclic graph.
func ReadySet(g *Graph) ([]WorkItem, error) {
	if cycling := DetectCycles(g); len(cycling) > 0 {
		return nil, cycleError(cycling)
	}

	ready := make([]WorkItem, 0)
	for _, item := range g.Items() {
		if item.Status != StatusOpen {
			continue
		}
		if !dependenciesClosed(g, item.ID) {
			continue
		}
		ready = append(ready, item)
	}

	sort.Slice(ready, func(i, j int) bool {
		a, b := ready[i], ready[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		ca := ComplexityOf(g, a.ID)
		cb := ComplexityOf(g, b.ID)
		if ca != cb {
			return ca.rank() > cb.rank()
		}
		return a.ID < b.ID
	})

	return ready, nil
}

// dependenciesClosed reports whether every dependency of the item is closed.
func dependenciesClosed(g *Graph, id string) bool {
	for _, dep := range g.Dependencies(id) {
		depItem, ok := g.Item(dep)
		if !ok || depItem.Status != StatusClosed {
			return false
		}
	}
	return true
}

// ComplexityScore computes the raw complexity score for an item:
// dependency count weighted 1 plus dependent count weighted 2.
func ComplexityScore(g *Graph, id string) int {
	return dependencyWeight*len(g.Dependencies(id)) + dependentWeight*len(g.Dependents(id))
}

// ComplexityOf maps an item's score onto the low/medium/high rating.
// Isolated items score zero and are always low.
func ComplexityOf(g *Graph, id string) Complexity {
	score := ComplexityScore(g, id)
	switch {
	case score >= complexityHighThreshold:
		return ComplexityHigh
	case score >= complexityMediumThreshold:
		return ComplexityMedium
	default:
		return ComplexityLow
	}
}
