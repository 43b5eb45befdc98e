// Package flow models API flow charts and renders them to the formats the
// service ships: mermaid DSL text, a cytoscape element/style spec for the
// interactive HTML viewer, and a DOT/SVG static preview.
//
// A Chart is built once per generation request and treated as immutable by
// every renderer. Node and edge emission order always follows input order;
// the renderers never sort or deduplicate.
package flow

import (
	"fmt"
	"strings"

	"github.com/gunho/artifact/pkg/errors"
	"github.com/gunho/artifact/pkg/theme"
)

// Layout directions accepted by charts. Anything else normalizes to TB.
const (
	LayoutTB = "TB"
	LayoutLR = "LR"
	LayoutRL = "RL"
	LayoutBT = "BT"
)

// Node shapes with dedicated rendering. Unrecognized shapes fall through to
// the default rendering in every renderer; they are never rejected.
const (
	ShapeProcess  = "process"
	ShapeService  = "service"
	ShapeDB       = "db"
	ShapeExternal = "external"
	ShapeAPI      = "api"
	ShapeError    = "error"
)

// Edge style types. The empty string means a normal edge.
const (
	EdgeStyleThick  = "thick"
	EdgeStyleDotted = "dotted"
)

// Metadata keys read for display purposes.
const (
	MetaMethod   = "method"
	MetaEndpoint = "endpoint"
)

// Chart is the canonical flow chart representation.
type Chart struct {
	Title          string                    `json:"title"`
	Layout         string                    `json:"layout,omitempty"`
	Theme          string                    `json:"theme,omitempty"`
	Nodes          []Node                    `json:"nodes"`
	Edges          []Edge                    `json:"edges"`
	ThemeVariables map[string]string         `json:"themeVariables,omitempty"`
	Classes        map[string]theme.Override `json:"classes,omitempty"`
}

// Node is one box in the chart. ID, Label, Shape and Class are first-class;
// any other display hint travels in Meta and is passed through untouched.
type Node struct {
	ID    string         `json:"id"`
	Label string         `json:"label,omitempty"`
	Shape string         `json:"shape,omitempty"`
	Class string         `json:"class,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
}

// DisplayLabel returns the label if set, otherwise the ID.
func (n Node) DisplayLabel() string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

// metaString reads a string-valued display hint, or "" when absent.
func (n Node) metaString(key string) string {
	v, ok := n.Meta[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Sprint(v)
	}
	return s
}

// Edge is a directed connection between two declared nodes.
type Edge struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Label     string `json:"label,omitempty"`
	StyleType string `json:"styleType,omitempty"`
}

// NormalizedLayout returns the chart's layout direction as one of TB, LR,
// RL, BT. Unknown or empty values normalize to TB.
func (c Chart) NormalizedLayout() string {
	switch strings.ToUpper(c.Layout) {
	case LayoutLR:
		return LayoutLR
	case LayoutRL:
		return LayoutRL
	case LayoutBT:
		return LayoutBT
	default:
		return LayoutTB
	}
}

// Validate checks the structural invariants every renderer relies on:
// a title, non-nil node and edge lists, unique node IDs, and edges that
// reference declared nodes. Shape and style strings are deliberately not
// validated; unknown values render with defaults.
func (c Chart) Validate() error {
	if c.Title == "" {
		return errors.New(errors.ErrCodeInvalidInput, "chart title is required")
	}
	if c.Nodes == nil {
		return errors.New(errors.ErrCodeInvalidInput, "chart nodes are required")
	}
	if c.Edges == nil {
		return errors.New(errors.ErrCodeInvalidInput, "chart edges are required")
	}

	ids := make(map[string]struct{}, len(c.Nodes))
	for i, n := range c.Nodes {
		if n.ID == "" {
			return errors.New(errors.ErrCodeInvalidInput, "node %d has no id", i)
		}
		if _, dup := ids[n.ID]; dup {
			return errors.New(errors.ErrCodeInvalidInput, "duplicate node id %q", n.ID)
		}
		ids[n.ID] = struct{}{}
	}

	for i, e := range c.Edges {
		if _, ok := ids[e.From]; !ok {
			return errors.New(errors.ErrCodeInvalidInput, "edge %d references unknown node %q", i, e.From)
		}
		if _, ok := ids[e.To]; !ok {
			return errors.New(errors.ErrCodeInvalidInput, "edge %d references unknown node %q", i, e.To)
		}
	}
	return nil
}

// ResolveTheme resolves the chart's theme name, variable overrides, and
// class overrides into a concrete palette.
func (c Chart) ResolveTheme() theme.Resolved {
	return theme.Resolve(c.Theme, c.ThemeVariables, c.Classes)
}
