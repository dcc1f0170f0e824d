package plan

import "strings"

// Explain renders the plan as an indented tree, root first.
func Explain(n Node) string {
	var sb strings.Builder
	explain(&sb, n, 0)
	return sb.String()
}

func explain(sb *strings.Builder, n Node, depth int) {
	for i := 0; i < depth; i++ {
		sb.WriteString("  ")
	}
	sb.WriteString(n.Describe())
	sb.WriteString("\n")

	for _, c := range n.Children() {
		explain(sb, c, depth+1)
	}
}
