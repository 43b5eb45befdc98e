// Package theme resolves the color palette used by the diagram renderers.
//
// A palette starts from a hard-coded default, is replaced wholesale when the
// request names one of the known themes, and is then patched key-by-key with
// caller overrides. Style classes (primary, accent, muted) resolve the same
// way but support partial overrides: an override that only sets fill keeps
// the theme's stroke.
//
// Resolve is a pure function: identical inputs always produce a structurally
// identical Resolved value. The content-addressed store upstream relies on
// this to dedup artifacts rendered from identical requests.
package theme

import "strings"

// Semantic variable names recognized in palettes and overrides.
const (
	VarPrimaryColor       = "primaryColor"
	VarPrimaryBorderColor = "primaryBorderColor"
	VarLineColor          = "lineColor"
	VarFontFamily         = "fontFamily"
)

// DefaultName is the theme used when no theme (or an unknown one) is requested.
const DefaultName = "default"

// ClassStyle holds the resolved colors for one node style class.
type ClassStyle struct {
	Fill   string `json:"fill"`
	Stroke string `json:"stroke"`
}

// Override is a partial class override supplied by the caller.
// Empty fields keep the theme default for that class.
type Override struct {
	Fill   string `json:"fill,omitempty"`
	Stroke string `json:"stroke,omitempty"`
}

// Resolved is the flattened output of Resolve. It is a value object:
// recomputed per request and never mutated afterwards.
type Resolved struct {
	// Name is the palette actually used. Equal to DefaultName when the
	// requested theme was empty or unrecognized.
	Name string

	// FellBack reports that an unrecognized theme name was silently replaced
	// by the default palette. Callers may log it; it is not an error.
	FellBack bool

	Variables map[string]string
	Classes   map[string]ClassStyle
}

// Var returns a resolved variable, or the empty string when the role is
// unknown.
func (r Resolved) Var(key string) string {
	return r.Variables[key]
}

// palettes maps each known theme name to its variable set.
// Colors for dark/light/blue/green/purple come from the product's original
// palette; forest/neutral/base mirror the mermaid built-in themes closely
// enough for the DSL and the HTML viewer to agree.
var palettes = map[string]map[string]string{
	"dark": {
		VarPrimaryColor:       "#1a1a1a",
		VarPrimaryBorderColor: "#404040",
		VarLineColor:          "#666666",
		VarFontFamily:         "Inter, Pretendard, sans-serif",
	},
	"light": {
		VarPrimaryColor:       "#ffffff",
		VarPrimaryBorderColor: "#e5e5e5",
		VarLineColor:          "#9ca3af",
		VarFontFamily:         "Inter, Pretendard, sans-serif",
	},
	"blue": {
		VarPrimaryColor:       "#eff6ff",
		VarPrimaryBorderColor: "#3b82f6",
		VarLineColor:          "#60a5fa",
		VarFontFamily:         "Inter, Pretendard, sans-serif",
	},
	"green": {
		VarPrimaryColor:       "#ecfdf5",
		VarPrimaryBorderColor: "#10b981",
		VarLineColor:          "#34d399",
		VarFontFamily:         "Inter, Pretendard, sans-serif",
	},
	"purple": {
		VarPrimaryColor:       "#faf5ff",
		VarPrimaryBorderColor: "#8b5cf6",
		VarLineColor:          "#a78bfa",
		VarFontFamily:         "Inter, Pretendard, sans-serif",
	},
	"forest": {
		VarPrimaryColor:       "#d4f1d4",
		VarPrimaryBorderColor: "#2d5a2d",
		VarLineColor:          "#2d5a2d",
		VarFontFamily:         "Inter, sans-serif",
	},
	"neutral": {
		VarPrimaryColor:       "#eeeeee",
		VarPrimaryBorderColor: "#9e9e9e",
		VarLineColor:          "#666666",
		VarFontFamily:         "Inter, sans-serif",
	},
	"base": {
		VarPrimaryColor:       "#ececff",
		VarPrimaryBorderColor: "#9370db",
		VarLineColor:          "#333333",
		VarFontFamily:         "Inter, sans-serif",
	},
	DefaultName: {
		VarPrimaryColor:       "#f8fafc",
		VarPrimaryBorderColor: "#1a202c",
		VarLineColor:          "#64748b",
		VarFontFamily:         "Inter, sans-serif",
	},
}

// classTables maps theme names to their default class colors.
// Themes without an entry fall through to defaultClasses.
var classTables = map[string]map[string]ClassStyle{
	"dark": {
		"primary": {Fill: "#374151", Stroke: "#6b7280"},
		"accent":  {Fill: "#451a03", Stroke: "#ea580c"},
		"muted":   {Fill: "#1f2937", Stroke: "#4b5563"},
	},
	"light": {
		"primary": {Fill: "#f8fafc", Stroke: "#64748b"},
		"accent":  {Fill: "#fef3c7", Stroke: "#f59e0b"},
		"muted":   {Fill: "#f1f5f9", Stroke: "#94a3b8"},
	},
	"blue": {
		"primary": {Fill: "#dbeafe", Stroke: "#2563eb"},
		"accent":  {Fill: "#fef3c7", Stroke: "#f59e0b"},
		"muted":   {Fill: "#f1f5f9", Stroke: "#94a3b8"},
	},
	"green": {
		"primary": {Fill: "#dcfce7", Stroke: "#16a34a"},
		"accent":  {Fill: "#fef3c7", Stroke: "#f59e0b"},
		"muted":   {Fill: "#f1f5f9", Stroke: "#94a3b8"},
	},
	"purple": {
		"primary": {Fill: "#ede9fe", Stroke: "#7c3aed"},
		"accent":  {Fill: "#fef3c7", Stroke: "#f59e0b"},
		"muted":   {Fill: "#f1f5f9", Stroke: "#94a3b8"},
	},
	"forest": {
		"primary": {Fill: "#4ade80", Stroke: "#16a34a"},
		"accent":  {Fill: "#86efac", Stroke: "#22c55e"},
		"muted":   {Fill: "#f1f5f9", Stroke: "#6b7280"},
	},
}

var defaultClasses = map[string]ClassStyle{
	"primary": {Fill: "#E3F2FD", Stroke: "#1976D2"},
	"accent":  {Fill: "#FFF3E0", Stroke: "#F57C00"},
	"muted":   {Fill: "#F5F5F5", Stroke: "#9E9E9E"},
}

// Known reports whether name (case-insensitive) is a recognized theme.
func Known(name string) bool {
	_, ok := palettes[normalize(name)]
	return ok
}

// Names returns the recognized theme names. The slice is a fresh copy.
func Names() []string {
	names := make([]string, 0, len(palettes))
	for n := range palettes {
		names = append(names, n)
	}
	return names
}

// Resolve merges the default palette, the named theme, caller variable
// overrides, and caller class overrides into a Resolved theme.
//
// Precedence, lowest to highest: default palette, named theme, overrides.
// Every key present in overrides replaces the theme value, even when empty.
// Class overrides are partial: only non-empty fields replace the theme value.
// An empty or unrecognized name selects the default palette without error.
func Resolve(name string, overrides map[string]string, classOverrides map[string]Override) Resolved {
	key := normalize(name)
	palette, ok := palettes[key]
	fellBack := false
	if !ok {
		fellBack = name != "" && key != DefaultName
		key = DefaultName
		palette = palettes[DefaultName]
	}

	vars := make(map[string]string, len(palette))
	for k, v := range palette {
		vars[k] = v
	}
	for k, v := range overrides {
		vars[k] = v
	}

	table, ok := classTables[key]
	if !ok {
		table = defaultClasses
	}
	classes := make(map[string]ClassStyle, len(table))
	for className, base := range table {
		style := base
		if ov, ok := classOverrides[className]; ok {
			if ov.Fill != "" {
				style.Fill = ov.Fill
			}
			if ov.Stroke != "" {
				style.Stroke = ov.Stroke
			}
		}
		classes[className] = style
	}

	return Resolved{
		Name:      key,
		FellBack:  fellBack,
		Variables: vars,
		Classes:   classes,
	}
}

func normalize(name string) string {
	if name == "" {
		return DefaultName
	}
	return strings.ToLower(name)
}
