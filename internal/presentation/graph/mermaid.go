// Package graph draws the dialogue's transition table.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/formbot/internal/runtime"
	"github.com/aretw0/formbot/pkg/domain"
)

// Overlay contains per-participant data to visualize on the diagram.
type Overlay struct {
	Current domain.State
}

// GenerateMermaid produces a Mermaid state diagram from the table, walking it
// from entry so the questions appear in order. Every question can be left
// with /cancel; rejected answers stay in place and are not drawn.
func GenerateMermaid(table runtime.Table, entry domain.State, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("stateDiagram-v2\n")
	sb.WriteString("    [*] --> NONE\n")
	fmt.Fprintf(&sb, "    NONE --> %s: /%s\n", entry, domain.CommandFillForm)

	seen := map[domain.State]bool{}
	for state := entry; state.Active() && !seen[state]; {
		seen[state] = true
		step, ok := table[state]
		if !ok {
			break
		}
		label := string(step.Accepts)
		if !step.Next.Active() {
			label += " (complete)"
		}
		fmt.Fprintf(&sb, "    %s --> %s: %s\n", state, step.Next.Normalize(), label)
		fmt.Fprintf(&sb, "    %s --> NONE: /%s\n", state, domain.CommandCancel)
		state = step.Next
	}

	if overlay != nil && overlay.Current != "" {
		sb.WriteString("    classDef current fill:#f472b6,color:#fff\n")
		fmt.Fprintf(&sb, "    class %s current\n", overlay.Current.Normalize())
	}
	return sb.String()
}
