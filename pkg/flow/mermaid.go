package flow

import (
	"fmt"
	"strings"
)

// ToMermaid renders a chart as a mermaid flowchart script.
//
// The output is line-oriented: a "flowchart <dir>" header, the title as a
// comment, one line per node, one line per edge, all in input order. Double
// quotes inside labels are replaced with single quotes so a label can never
// break the line syntax; labels are sanitized, not rejected.
func ToMermaid(c Chart) string {
	var b strings.Builder
	fmt.Fprintf(&b, "flowchart %s\n", c.NormalizedLayout())
	fmt.Fprintf(&b, "%%%% %s\n", c.Title)

	for _, n := range c.Nodes {
		label := escapeLabel(n.DisplayLabel())
		switch n.Shape {
		case ShapeDB, "database":
			fmt.Fprintf(&b, "%s([%s])\n", n.ID, label)
		case ShapeExternal, "client":
			fmt.Fprintf(&b, "%s[\"%s\"]\n", n.ID, label)
		case ShapeService, ShapeProcess:
			fmt.Fprintf(&b, "%s{%s}\n", n.ID, label)
		default:
			fmt.Fprintf(&b, "%s[%s]\n", n.ID, label)
		}
	}

	for _, e := range c.Edges {
		if e.Label == "" {
			fmt.Fprintf(&b, "%s --> %s\n", e.From, e.To)
		} else {
			fmt.Fprintf(&b, "%s -->|%s| %s\n", e.From, escapeLabel(e.Label), e.To)
		}
	}
	return b.String()
}

// escapeLabel keeps mermaid's bracket syntax well-formed. Lossy on purpose.
func escapeLabel(s string) string {
	return strings.ReplaceAll(s, `"`, "'")
}
