package analyzer

import (
	"fmt"
	"strings"
)

// String renders the graph one node per line, in offset order:
//
//	IL_000a branching/conditional -> [IL_000c IL_0014] <- [IL_0008]
func (g *Graph) String() string {
	var sb strings.Builder
	for _, idx := range g.Ordered() {
		n := &g.Nodes[idx]
		fmt.Fprintf(&sb, "%s %s", FormatOffset(n.Offset), n.Kind)
		if n.Kind == NodeBranching {
			fmt.Fprintf(&sb, "/%s", n.Branch)
		}
		fmt.Fprintf(&sb, " -> %s <- %s\n",
			formatOffsets(g.ExitOffsets(n)), formatOffsets(g.EnteringOffsets(n)))
	}
	return sb.String()
}

// FormatOffset renders an instruction offset the way disassemblers label it
func FormatOffset(offset int) string {
	return fmt.Sprintf("IL_%04x", offset)
}

func formatOffsets(offsets []int) string {
	labels := make([]string, len(offsets))
	for i, o := range offsets {
		labels[i] = FormatOffset(o)
	}
	return "[" + strings.Join(labels, " ") + "]"
}
