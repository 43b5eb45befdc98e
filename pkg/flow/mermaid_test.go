package flow

import (
	"strings"
	"testing"
)

func TestToMermaidScenario(t *testing.T) {
	m := ToMermaid(validChart())

	lines := strings.Split(strings.TrimRight(m, "\n"), "\n")
	want := []string{
		"flowchart LR",
		"%% Order Flow",
		`A["Client"]`,
		"B{API}",
		"A -->|POST /orders| B",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), m)
	}
	for i, w := range want {
		if lines[i] != w {
			t.Errorf("line %d = %q, want %q", i, lines[i], w)
		}
	}
}

func TestToMermaidShapes(t *testing.T) {
	c := Chart{
		Title: "Shapes",
		Nodes: []Node{
			{ID: "d", Shape: "db"},
			{ID: "d2", Shape: "database"},
			{ID: "x", Shape: "external"},
			{ID: "c", Shape: "client"},
			{ID: "s", Shape: "service"},
			{ID: "p", Shape: "process"},
			{ID: "a", Shape: "api"},
			{ID: "u", Shape: "unknown"},
			{ID: "n"},
		},
		Edges: []Edge{},
	}
	m := ToMermaid(c)

	for _, want := range []string{
		"d([d])", "d2([d2])",
		`x["x"]`, `c["c"]`,
		"s{s}", "p{p}",
		"a[a]", "u[u]", "n[n]",
	} {
		if !strings.Contains(m, want+"\n") {
			t.Errorf("output missing %q:\n%s", want, m)
		}
	}
}

func TestToMermaidEscapesQuotes(t *testing.T) {
	c := Chart{
		Title: "Quotes",
		Nodes: []Node{{ID: "A", Label: `say "hi"`}},
		Edges: []Edge{{From: "A", To: "A", Label: `do "it"`}},
	}
	m := ToMermaid(c)

	if !strings.Contains(m, "A[say 'hi']") {
		t.Errorf("node label quotes not sanitized:\n%s", m)
	}
	if !strings.Contains(m, "A -->|do 'it'| A") {
		t.Errorf("edge label quotes not sanitized:\n%s", m)
	}
}

func TestToMermaidEdgeWithoutLabel(t *testing.T) {
	c := validChart()
	c.Edges[0].Label = ""
	if !strings.Contains(ToMermaid(c), "A --> B\n") {
		t.Error("unlabeled edge should render without a pipe section")
	}
}

func TestToMermaidPreservesInputOrder(t *testing.T) {
	c := Chart{
		Title: "Order",
		Nodes: []Node{{ID: "z"}, {ID: "a"}, {ID: "m"}},
		Edges: []Edge{{From: "m", To: "a"}, {From: "z", To: "m"}},
	}
	m := ToMermaid(c)

	// One line per node, one per edge, in input order after the two header lines.
	lines := strings.Split(strings.TrimRight(m, "\n"), "\n")
	want := []string{"z[z]", "a[a]", "m[m]", "m --> a", "z --> m"}
	if len(lines) != 2+len(want) {
		t.Fatalf("unexpected line count:\n%s", m)
	}
	for i, w := range want {
		if lines[2+i] != w {
			t.Errorf("line %d = %q, want %q", 2+i, lines[2+i], w)
		}
	}
}
