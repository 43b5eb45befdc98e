package flow

import (
	"strings"
	"testing"
)

func TestToDOT(t *testing.T) {
	c := validChart()
	dot := ToDOT(c, c.ResolveTheme())

	for _, want := range []string{
		"digraph G {",
		"rankdir=LR;",
		`label="Order Flow";`,
		`"A" [label="Client", shape=ellipse];`,
		`"B" [label="API"];`,
		`"A" -> "B" [label="POST /orders"];`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
}

func TestToDOTEdgeStyles(t *testing.T) {
	c := Chart{
		Title: "Styles",
		Nodes: []Node{{ID: "A"}, {ID: "B"}, {ID: "C"}},
		Edges: []Edge{
			{From: "A", To: "B", StyleType: EdgeStyleDotted},
			{From: "B", To: "C", StyleType: EdgeStyleThick},
			{From: "A", To: "C"},
		},
	}
	dot := ToDOT(c, c.ResolveTheme())

	if !strings.Contains(dot, `"A" -> "B" [style=dashed];`) {
		t.Errorf("dotted edge missing:\n%s", dot)
	}
	if !strings.Contains(dot, `"B" -> "C" [penwidth=2.5];`) {
		t.Errorf("thick edge missing:\n%s", dot)
	}
	if !strings.Contains(dot, `"A" -> "C";`) {
		t.Errorf("plain edge missing:\n%s", dot)
	}
}

func TestToDOTClassColors(t *testing.T) {
	c := Chart{
		Title: "Classes",
		Theme: "blue",
		Nodes: []Node{{ID: "A", Class: "primary"}},
		Edges: []Edge{},
	}
	dot := ToDOT(c, c.ResolveTheme())

	if !strings.Contains(dot, `fillcolor="#dbeafe"`) || !strings.Contains(dot, `color="#2563eb"`) {
		t.Errorf("class colors not applied:\n%s", dot)
	}
}
