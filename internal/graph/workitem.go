package graph

import "fmt"

// ItemType classifies a work item.
type ItemType string

const (
	ItemTypeTask    ItemType = "task"
	ItemTypeBug     ItemType = "bug"
	ItemTypeFeature ItemType = "feature"
	ItemTypeEpic    ItemType = "epic"
	ItemTypeChore   ItemType = "chore"
)

// ItemStatus is the lifecycle status of a work item. The tracker is the
// source of truth for status, including blocked: verification failures are
// persisted as blocked rather than derived from dependency edges.
type ItemStatus string

const (
	StatusOpen       ItemStatus = "open"
	StatusInProgress ItemStatus = "in_progress"
	StatusBlocked    ItemStatus = "blocked"
	StatusClosed     ItemStatus = "closed"
)

// Priority is an ordinal priority where 0 is critical and 4 is lowest.
type Priority int

const (
	PriorityCritical Priority = 0
	PriorityLowest   Priority = 4
)

// Valid reports whether the priority is within the 0-4 range.
func (p Priority) Valid() bool {
	return p >= PriorityCritical && p <= PriorityLowest
}

// Complexity is a derived risk rating computed from an item's position in the
// dependency graph. It is never stored authoritatively.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// rank orders complexities for sorting, higher value means higher complexity.
func (c Complexity) rank() int {
	switch c {
	case ComplexityHigh:
		return 2
	case ComplexityMedium:
		return 1
	default:
		return 0
	}
}

// WorkItem is a schedulable unit read from a tracker snapshot. The engine
// only reads work items; all mutations go through the tracker collaborator.
type WorkItem struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Type      ItemType   `json:"type"`
	Status    ItemStatus `json:"status"`
	Priority  Priority   `json:"priority"`
	DependsOn []string   `json:"depends_on,omitempty"`
	Category  string     `json:"category,omitempty"`
}

// Validate checks the structural invariants of a work item.
func (w WorkItem) Validate() error {
	if w.ID == "" {
		return fmt.Errorf("work item must have an id")
	}
	if !w.Priority.Valid() {
		return fmt.Errorf("work item %q has priority %d outside 0-4", w.ID, w.Priority)
	}
	switch w.Status {
	case StatusOpen, StatusInProgress, StatusBlocked, StatusClosed:
	default:
		return fmt.Errorf("work item %q has unknown status %q", w.ID, w.Status)
	}
	return nil
}
