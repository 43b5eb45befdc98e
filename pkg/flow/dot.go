package flow

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/gunho/artifact/pkg/errors"
	"github.com/gunho/artifact/pkg/theme"
)

// ToDOT converts a chart to Graphviz DOT for the static preview. The
// resulting string can be rendered with [RenderSVG].
//
// Shapes map onto the closest Graphviz primitives: db nodes render as
// cylinders and external nodes as ellipses; everything else is a rounded
// box. Fill and line colors come from the resolved theme.
func ToDOT(c Chart, th theme.Resolved) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	fmt.Fprintf(&buf, "  rankdir=%s;\n", c.NormalizedLayout())
	fmt.Fprintf(&buf, "  label=%q;\n", c.Title)
	buf.WriteString("  labelloc=t;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	fmt.Fprintf(&buf, "  node [shape=box, style=\"rounded,filled\", fillcolor=%q, color=%q, fontsize=14, margin=\"0.2,0.1\"];\n",
		th.Var(theme.VarPrimaryColor), th.Var(theme.VarPrimaryBorderColor))
	fmt.Fprintf(&buf, "  edge [color=%q, fontsize=11];\n", th.Var(theme.VarLineColor))
	buf.WriteString("\n")

	for _, n := range c.Nodes {
		attrs := []string{fmt.Sprintf("label=%q", n.DisplayLabel())}
		switch n.Shape {
		case ShapeDB, "database":
			attrs = append(attrs, "shape=cylinder")
		case ShapeExternal, "client":
			attrs = append(attrs, "shape=ellipse")
		}
		if cs, ok := th.Classes[n.Class]; ok {
			attrs = append(attrs, fmt.Sprintf("fillcolor=%q", cs.Fill), fmt.Sprintf("color=%q", cs.Stroke))
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range c.Edges {
		var attrs []string
		if e.Label != "" {
			attrs = append(attrs, fmt.Sprintf("label=%q", e.Label))
		}
		switch e.StyleType {
		case EdgeStyleDotted:
			attrs = append(attrs, "style=dashed")
		case EdgeStyleThick:
			attrs = append(attrs, "penwidth=2.5")
		}
		if len(attrs) == 0 {
			fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
		} else {
			fmt.Fprintf(&buf, "  %q -> %q [%s];\n", e.From, e.To, strings.Join(attrs, ", "))
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRender, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRender, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeRender, err, "render SVG")
	}
	return buf.Bytes(), nil
}
