package flow

import (
	"fmt"
	"slices"

	"github.com/gunho/artifact/pkg/theme"
)

// VisualSpec is the element list and selector style sheet consumed by the
// cytoscape viewer embedded in the generated HTML document. Both halves are
// value objects: built per request, marshaled to JSON, never mutated.
type VisualSpec struct {
	Elements []Element   `json:"elements"`
	Styles   []StyleRule `json:"styles"`
}

// Element wraps cytoscape's {"data": {...}} envelope. Data is either a
// NodeData or an EdgeData.
type Element struct {
	Data any `json:"data"`
}

// NodeData is the per-node payload for the viewer.
type NodeData struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	Type       string `json:"type"`
	StyleClass string `json:"styleClass"`
	Method     string `json:"method,omitempty"`
	Endpoint   string `json:"endpoint,omitempty"`
}

// EdgeData is the per-edge payload. The ID is "{from}-{to}"; two edges
// sharing a from/to pair share an ID, which the viewer tolerates.
type EdgeData struct {
	ID        string `json:"id"`
	Source    string `json:"source"`
	Target    string `json:"target"`
	Label     string `json:"label"`
	StyleType string `json:"styleType"`
}

// StyleRule is one selector-based style entry.
type StyleRule struct {
	Selector string         `json:"selector"`
	Style    map[string]any `json:"style"`
}

// BuildVisualSpec converts a chart and its resolved theme into viewer input.
//
// Elements preserve input order (nodes first, then edges). Style rules are
// emitted in a fixed order so that identical inputs produce byte-identical
// JSON downstream: generic node, per-shape rules, per-class rules (sorted by
// class name), generic edge, then the thick/dotted overrides. Unrecognized
// shape or styleType values simply match no dedicated rule and render with
// the generic ones.
func BuildVisualSpec(c Chart, th theme.Resolved) VisualSpec {
	spec := VisualSpec{
		Elements: make([]Element, 0, len(c.Nodes)+len(c.Edges)),
	}

	for _, n := range c.Nodes {
		label := n.DisplayLabel()
		method := n.metaString(MetaMethod)
		endpoint := n.metaString(MetaEndpoint)
		if method != "" {
			label = fmt.Sprintf("%s\n%s %s", label, method, endpoint)
		}
		shape := n.Shape
		if shape == "" {
			shape = ShapeProcess
		}
		spec.Elements = append(spec.Elements, Element{Data: NodeData{
			ID:         n.ID,
			Label:      label,
			Type:       shape,
			StyleClass: n.Class,
			Method:     method,
			Endpoint:   endpoint,
		}})
	}

	for _, e := range c.Edges {
		spec.Elements = append(spec.Elements, Element{Data: EdgeData{
			ID:        e.From + "-" + e.To,
			Source:    e.From,
			Target:    e.To,
			Label:     e.Label,
			StyleType: e.StyleType,
		}})
	}

	spec.Styles = buildStyles(th)
	return spec
}

func buildStyles(th theme.Resolved) []StyleRule {
	primary := th.Var(theme.VarPrimaryColor)
	border := th.Var(theme.VarPrimaryBorderColor)
	line := th.Var(theme.VarLineColor)
	font := th.Var(theme.VarFontFamily)

	rules := []StyleRule{
		{Selector: "node", Style: map[string]any{
			"label":          "data(label)",
			"text-valign":    "center",
			"text-halign":    "center",
			"font-family":    font,
			"font-size":      "12px",
			"font-weight":    "600",
			"color":          border,
			"text-wrap":      "wrap",
			"text-max-width": "120px",
			"width":          "110px",
			"height":         "65px",
			"border-width":   2,
		}},
		{Selector: `node[type = "external"]`, Style: map[string]any{
			"background-color": primary,
			"border-color":     border,
			"shape":            "ellipse",
			"width":            "120px",
			"height":           "70px",
		}},
		{Selector: `node[type = "service"]`, Style: map[string]any{
			"background-color": primary,
			"border-color":     border,
			"shape":            "rectangle",
		}},
		{Selector: `node[type = "db"]`, Style: map[string]any{
			"background-color": primary,
			"border-color":     border,
			"shape":            "round-rectangle",
			"width":            "105px",
			"height":           "70px",
		}},
	}

	for _, name := range sortedClassNames(th.Classes) {
		cs := th.Classes[name]
		rules = append(rules, StyleRule{
			Selector: fmt.Sprintf("node[styleClass = %q]", name),
			Style: map[string]any{
				"background-color": cs.Fill,
				"border-color":     cs.Stroke,
			},
		})
	}

	rules = append(rules,
		StyleRule{Selector: "edge", Style: map[string]any{
			"curve-style":             "bezier",
			"target-arrow-shape":      "triangle",
			"target-arrow-color":      line,
			"line-color":              line,
			"width":                   2,
			"label":                   "data(label)",
			"font-size":               "11px",
			"font-family":             font,
			"color":                   border,
			"text-background-color":   "rgba(255,255,255,0.9)",
			"text-background-opacity": 1,
			"text-background-padding": "4px",
		}},
		StyleRule{Selector: `edge[styleType = "thick"]`, Style: map[string]any{
			"width":              4,
			"line-color":         border,
			"target-arrow-color": border,
		}},
		StyleRule{Selector: `edge[styleType = "dotted"]`, Style: map[string]any{
			"line-style": "dotted",
			"width":      2,
		}},
	)
	return rules
}

func sortedClassNames(classes map[string]theme.ClassStyle) []string {
	names := make([]string, 0, len(classes))
	for name := range classes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
