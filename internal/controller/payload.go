package controller

import (
	"fmt"
	"strings"

	"github.com/tha-hammer/silmari/internal/graph"
)

// BuildPayload renders the instruction text for one work item, scaling the
// level of detail to the item's complexity rating: low-complexity items get
// minimal instructions, high-complexity items get a mandatory independent-
// verification checklist.
func BuildPayload(item graph.WorkItem, complexity graph.Complexity, score int, dependencies []graph.WorkItem) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Work item: %s\n", item.ID)
	fmt.Fprintf(&b, "Title: %s\n", item.Title)
	fmt.Fprintf(&b, "Type: %s\n", item.Type)
	fmt.Fprintf(&b, "Priority: %d\n", item.Priority)
	fmt.Fprintf(&b, "Complexity: %s (score %d)\n", complexity, score)

	if len(dependencies) > 0 {
		b.WriteString("\nCompleted dependencies for context:\n")
		for _, dep := range dependencies {
			fmt.Fprintf(&b, "- %s: %s\n", dep.ID, dep.Title)
		}
	}

	b.WriteString("\nImplement this work item in the current working tree.\n")

	switch complexity {
	case graph.ComplexityLow:
		// Minimal instructions; the item stands on its own.
	case graph.ComplexityMedium:
		b.WriteString("Review the dependency context above before starting, and keep the change scoped to this item.\n")
	case graph.ComplexityHigh:
		b.WriteString(`This item blocks several others, so treat it as high risk.
Before reporting completion, work through this verification checklist:
1. The full test suite passes locally.
2. Every dependent work item's interface expectations still hold.
3. No unrelated files were modified.
4. New behavior is covered by at least one test.
Report which checklist items you verified and how.
`)
	}

	return b.String()
}
