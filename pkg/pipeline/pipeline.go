// Package pipeline runs the complete artifact generation flow used by both
// CLI and API: admit the request against the user's quota, render the
// requested artifact kind, and persist the rendered fragments.
//
// # Architecture
//
// Generation has three stages:
//
//  1. Admit: reserve one artifact unit on the user's subscription
//  2. Render: produce the output fragments for the requested kind
//  3. Persist: write fragments to the content store
//
// The reservation happens before any render work, so an over-quota request
// costs nothing. A failure after the reservation releases the unit again.
//
// # Usage
//
//	runner := pipeline.NewRunner(gate, st, c, nil, logger)
//	req := pipeline.Request{
//	    UserID: "u123",
//	    Kind:   pipeline.KindFlowchart,
//	    Chart:  &chart,
//	}
//	result, err := runner.Execute(ctx, req)
package pipeline

import (
	"strings"
	"time"

	"github.com/gunho/artifact/pkg/apidoc"
	"github.com/gunho/artifact/pkg/deck"
	"github.com/gunho/artifact/pkg/errors"
	"github.com/gunho/artifact/pkg/flow"
	"github.com/gunho/artifact/pkg/store"
)

// Artifact kinds the pipeline can produce.
const (
	KindFlowchart = "flowchart"
	KindAPIDoc    = "apidoc"
	KindDeck      = "deck"
)

// ValidKinds is the set of supported artifact kinds.
var ValidKinds = map[string]bool{
	KindFlowchart: true,
	KindAPIDoc:    true,
	KindDeck:      true,
}

// Output format constants.
const (
	FormatMermaid = "mermaid"
	FormatVisual  = "visual"
	FormatHTML    = "html"
	FormatSVG     = "svg"
	FormatJSON    = "json"
	FormatPPTX    = "pptx"
)

// validFormats lists the formats each kind supports.
var validFormats = map[string]map[string]bool{
	KindFlowchart: {FormatMermaid: true, FormatVisual: true, FormatHTML: true, FormatSVG: true},
	KindAPIDoc:    {FormatJSON: true, FormatHTML: true},
	KindDeck:      {FormatPPTX: true},
}

// defaultFormats is what each kind renders when the request names none.
// The SVG preview is opt-in because it is the only format that needs a
// layout engine run.
var defaultFormats = map[string][]string{
	KindFlowchart: {FormatMermaid, FormatVisual, FormatHTML},
	KindAPIDoc:    {FormatJSON, FormatHTML},
	KindDeck:      {FormatPPTX},
}

// storePrefix maps a kind to the content store prefix its artifacts live
// under.
var storePrefix = map[string]string{
	KindFlowchart: "flowcharts",
	KindAPIDoc:    "docs",
	KindDeck:      "decks",
}

// Request describes one artifact generation. Exactly one of the payload
// fields matching Kind must be set.
type Request struct {
	UserID string `json:"user_id"`
	Kind   string `json:"kind"`
	Title  string `json:"title,omitempty"`

	// Flowchart payload
	Chart *flow.Chart `json:"chart,omitempty"`

	// API document payload
	Endpoints []apidoc.Endpoint `json:"endpoints,omitempty"`
	Version   string            `json:"version,omitempty"`

	// Deck payload
	Deck *deck.Deck `json:"deck,omitempty"`

	// Formats selects which outputs to render. Empty means the kind's
	// defaults.
	Formats []string `json:"formats,omitempty"`

	// Refresh bypasses the render cache.
	Refresh bool `json:"refresh,omitempty"`
}

// ValidateAndSetDefaults checks the request and fills in defaults.
func (req *Request) ValidateAndSetDefaults() error {
	if req.UserID == "" {
		return errors.New(errors.ErrCodeInvalidInput, "user id is required")
	}
	if !ValidKinds[req.Kind] {
		return errors.New(errors.ErrCodeInvalidKind, "unknown artifact kind %q", req.Kind)
	}

	switch req.Kind {
	case KindFlowchart:
		if req.Chart == nil {
			return errors.New(errors.ErrCodeInvalidInput, "flowchart request needs a chart")
		}
		if req.Title == "" {
			req.Title = req.Chart.Title
		}
	case KindAPIDoc:
		if len(req.Endpoints) == 0 {
			return errors.New(errors.ErrCodeInvalidInput, "api document request needs endpoints")
		}
	case KindDeck:
		if req.Deck == nil {
			return errors.New(errors.ErrCodeInvalidInput, "deck request needs an outline")
		}
		if req.Title == "" {
			req.Title = req.Deck.Title
		}
	}
	if req.Title == "" {
		return errors.New(errors.ErrCodeInvalidInput, "title is required")
	}

	if len(req.Formats) == 0 {
		req.Formats = defaultFormats[req.Kind]
	}
	for _, f := range req.Formats {
		if !validFormats[req.Kind][f] {
			return errors.New(errors.ErrCodeInvalidInput, "format %q not supported for %s", f, req.Kind)
		}
	}
	return nil
}

func (req *Request) wantsFormat(f string) bool {
	for _, have := range req.Formats {
		if have == f {
			return true
		}
	}
	return false
}

// Result is the outcome of one generation run.
type Result struct {
	// Artifacts are the persisted outputs in render order.
	Artifacts []store.Artifact

	// Stats contains timing and size information.
	Stats Stats

	// CacheHit reports whether the rendered fragments came from cache.
	CacheHit bool
}

// Stats contains pipeline execution statistics.
type Stats struct {
	RenderTime  time.Duration
	PersistTime time.Duration
	Fragments   int
}

// slug turns an artifact title into a file name stem: lowercase
// alphanumerics with single dashes. Empty input falls back to "artifact".
func slug(title string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "artifact"
	}
	return out
}
