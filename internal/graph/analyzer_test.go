package graph

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tha-hammer/silmari/internal/types"
)

func TestDetectCyclesAcyclic(t *testing.T) {
	g := mustGraph(t,
		item("a", StatusOpen, 1),
		item("b", StatusOpen, 1, "a"),
		item("c", StatusOpen, 1, "a", "b"),
	)
	assert.Empty(t, DetectCycles(g))
}

func TestDetectCyclesSimpleCycle(t *testing.T) {
	g := mustGraph(t,
		item("a", StatusOpen, 1, "b"),
		item("b", StatusOpen, 1, "a"),
		item("c", StatusOpen, 1),
	)
	assert.Equal(t, []string{"a", "b"}, DetectCycles(g))
}

func TestDetectCyclesSelfDependency(t *testing.T) {
	// A self-dependency is a cycle of length one.
	g := mustGraph(t,
		item("a", StatusOpen, 1, "a"),
	)
	assert.Equal(t, []string{"a"}, DetectCycles(g))
}

func TestDetectCyclesMultipleCycles(t *testing.T) {
	g := mustGraph(t,
		item("a", StatusOpen, 1, "b"),
		item("b", StatusOpen, 1, "a"),
		item("c", StatusOpen, 1, "d"),
		item("d", StatusOpen, 1, "c"),
		item("e", StatusOpen, 1, "a"),
	)
	assert.Equal(t, []string{"a", "b", "c", "d"}, DetectCycles(g))
}

func TestTopologicalOrderIsValidLinearization(t *testing.T) {
	g := mustGraph(t,
		item("a", StatusOpen, 1),
		item("b", StatusOpen, 1, "a"),
		item("c", StatusOpen, 1, "a"),
		item("d", StatusOpen, 1, "b", "c"),
		item("e", StatusOpen, 1),
	)

	order, err := TopologicalOrder(g)
	require.NoError(t, err)
	require.Len(t, order, 5)

	position := make(map[string]int, len(order))
	for i, id := range order {
		position[id] = i
	}
	// Every dependency must be placed before its dependent.
	for _, it := range g.Items() {
		for _, dep := range it.DependsOn {
			assert.Less(t, position[dep], position[it.ID],
				"%s must come after its dependency %s", it.ID, dep)
		}
	}
}

func TestTopologicalOrderDeterministicTieBreak(t *testing.T) {
	// All independent: order is decided purely by (priority asc, id asc).
	g := mustGraph(t,
		item("z", StatusOpen, 0),
		item("m", StatusOpen, 1),
		item("a", StatusOpen, 1),
		item("q", StatusOpen, 2),
	)

	order, err := TopologicalOrder(g)
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a", "m", "q"}, order)
}

func TestTopologicalOrderRefusesCycle(t *testing.T) {
	g := mustGraph(t,
		item("a", StatusOpen, 1, "b"),
		item("b", StatusOpen, 1, "a"),
	)

	order, err := TopologicalOrder(g)
	require.Error(t, err)
	assert.Nil(t, order, "no partial order on cyclic graphs")
	assert.Equal(t, types.GRAPH_CYCLE_DETECTED, types.CodeOf(err))
	assert.Contains(t, err.Error(), "a, b")
}

func TestReadySetRefusesCycle(t *testing.T) {
	g := mustGraph(t,
		item("a", StatusOpen, 1, "a"),
	)
	ready, err := ReadySet(g)
	require.Error(t, err)
	assert.Nil(t, ready)
	assert.Equal(t, types.GRAPH_CYCLE_DETECTED, types.CodeOf(err))
}

func TestReadySetScenario(t *testing.T) {
	// Graph {A: no deps; B depends on A; C depends on A}, all open.
	open := func() *Graph {
		return mustGraph(t,
			item("A", StatusOpen, 1),
			item("B", StatusOpen, 1, "A"),
			item("C", StatusOpen, 1, "A"),
		)
	}

	ready, err := ReadySet(open())
	require.NoError(t, err)
	require.Len(t, ready, 1)
	assert.Equal(t, "A", ready[0].ID)

	// After A closes, B and C become ready, ordered by priority then id.
	g := mustGraph(t,
		item("A", StatusClosed, 1),
		item("C", StatusOpen, 1, "A"),
		item("B", StatusOpen, 1, "A"),
	)
	ready, err = ReadySet(g)
	require.NoError(t, err)
	require.Len(t, ready, 2)
	assert.Equal(t, "B", ready[0].ID)
	assert.Equal(t, "C", ready[1].ID)
}

func TestReadySetExcludesBlockedAndInProgress(t *testing.T) {
	g := mustGraph(t,
		item("a", StatusBlocked, 0),
		item("b", StatusInProgress, 0),
		item("c", StatusClosed, 0),
		item("d", StatusOpen, 1),
	)

	ready, err := ReadySet(g)
	require.NoError(t, err)
	require.Len(t, ready, 1)
	assert.Equal(t, "d", ready[0].ID)
}

func TestReadySetOrdering(t *testing.T) {
	// p0 beats p1 regardless of complexity; within p1, the item with more
	// dependents (higher complexity) comes first; equal complexity breaks by id.
	g := mustGraph(t,
		item("low-pri", StatusOpen, 1),
		item("hub", StatusOpen, 1),
		item("x", StatusOpen, 3, "hub"),
		item("y", StatusOpen, 3, "hub"),
		item("z", StatusOpen, 3, "hub"),
		item("critical", StatusOpen, 0),
	)

	ready, err := ReadySet(g)
	require.NoError(t, err)
	var ids []string
	for _, it := range ready {
		ids = append(ids, it.ID)
	}
	// hub has 3 dependents (score 6, high); low-pri is isolated (low).
	assert.Equal(t, []string{"critical", "hub", "low-pri"}, ids)
}

func TestReadySetMatchesBruteForce(t *testing.T) {
	// Property: ReadySet equals the brute-force filter {open, all deps closed}
	// on randomized acyclic graphs.
	rng := rand.New(rand.NewSource(42))
	statuses := []ItemStatus{StatusOpen, StatusInProgress, StatusBlocked, StatusClosed}

	for trial := 0; trial < 50; trial++ {
		n := 2 + rng.Intn(12)
		items := make([]WorkItem, n)
		for i := 0; i < n; i++ {
			it := item(fmt.Sprintf("n%02d", i), statuses[rng.Intn(len(statuses))], Priority(rng.Intn(5)))
			// Edges only point to earlier indices, guaranteeing acyclicity.
			for j := 0; j < i; j++ {
				if rng.Intn(4) == 0 {
					it.DependsOn = append(it.DependsOn, fmt.Sprintf("n%02d", j))
				}
			}
			items[i] = it
		}

		g, err := New(items)
		require.NoError(t, err)

		ready, err := ReadySet(g)
		require.NoError(t, err)

		expected := make(map[string]bool)
		for _, it := range items {
			if it.Status != StatusOpen {
				continue
			}
			eligible := true
			for _, dep := range it.DependsOn {
				depItem, _ := g.Item(dep)
				if depItem.Status != StatusClosed {
					eligible = false
					break
				}
			}
			if eligible {
				expected[it.ID] = true
			}
		}

		got := make(map[string]bool)
		for _, it := range ready {
			got[it.ID] = true
		}
		assert.Equal(t, expected, got, "trial %d", trial)
	}
}

func TestComplexityScoreScenario(t *testing.T) {
	// 1 dependency and 3 dependents: score = 1 + 3*2 = 7, rated high.
	g := mustGraph(t,
		item("dep", StatusOpen, 1),
		item("x", StatusOpen, 1, "dep"),
		item("d1", StatusOpen, 1, "x"),
		item("d2", StatusOpen, 1, "x"),
		item("d3", StatusOpen, 1, "x"),
	)

	assert.Equal(t, 7, ComplexityScore(g, "x"))
	assert.Equal(t, ComplexityHigh, ComplexityOf(g, "x"))
}

func TestComplexityOfThresholds(t *testing.T) {
	// Isolated item: score 0, low.
	g := mustGraph(t, item("solo", StatusOpen, 1))
	assert.Equal(t, 0, ComplexityScore(g, "solo"))
	assert.Equal(t, ComplexityLow, ComplexityOf(g, "solo"))

	// One dependency: score 1, still low.
	g = mustGraph(t,
		item("a", StatusOpen, 1),
		item("b", StatusOpen, 1, "a"),
	)
	assert.Equal(t, ComplexityLow, ComplexityOf(g, "b"))

	// One dependent: score 2, medium.
	assert.Equal(t, 2, ComplexityScore(g, "a"))
	assert.Equal(t, ComplexityMedium, ComplexityOf(g, "a"))
}

func TestComplexityScoreMonotonic(t *testing.T) {
	// Adding a dependent to x never decreases its score.
	base := []WorkItem{
		item("x", StatusOpen, 1),
		item("d1", StatusOpen, 1, "x"),
	}
	g, err := New(base)
	require.NoError(t, err)
	before := ComplexityScore(g, "x")

	grown := append(base, item("d2", StatusOpen, 1, "x"))
	g2, err := New(grown)
	require.NoError(t, err)
	after := ComplexityScore(g2, "x")

	assert.GreaterOrEqual(t, after, before)
	assert.Equal(t, before+2, after)
}

func TestIsolatedOpenItemAlwaysReady(t *testing.T) {
	g := mustGraph(t, item("solo", StatusOpen, 4))
	ready, err := ReadySet(g)
	require.NoError(t, err)
	require.Len(t, ready, 1)
	assert.Equal(t, "solo", ready[0].ID)
	assert.Equal(t, ComplexityLow, ComplexityOf(g, "solo"))
}
