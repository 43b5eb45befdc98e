// Package htmldoc wraps rendered fragments into self-contained HTML
// documents.
//
// The package owns the document skeletons and the pinned CDN script URLs as
// versioned constants; renderers hand it payloads and it does plain string
// assembly. No templating engine is involved. The one non-negotiable rule is
// that "</script>" inside an inlined payload is escaped to "<\/script>" so a
// payload can never terminate its surrounding tag: the generated documents
// are executed directly by browsers.
package htmldoc

import (
	"fmt"
	"strings"
)

// Pinned external library URLs. Bump deliberately; the generated documents
// of past requests keep whatever version they were built with.
const (
	DagreURL          = "https://unpkg.com/dagre@0.8.5/dist/dagre.min.js"
	CytoscapeURL      = "https://unpkg.com/cytoscape@3.26.0/dist/cytoscape.min.js"
	CytoscapeDagreURL = "https://unpkg.com/cytoscape-dagre@2.4.0/cytoscape-dagre.js"
	ScalarURL         = "https://cdn.jsdelivr.net/npm/@scalar/api-reference"
)

// MIME types for script blocks.
const (
	MIMEJSON       = "application/json"
	MIMEJavaScript = "text/javascript"
)

// ScriptBlock is one inline <script> element in the generated document.
// JSON payloads are emitted with their MIME type so browsers treat them as
// data; JavaScript payloads are emitted as executable scripts.
type ScriptBlock struct {
	ID       string
	MIMEType string
	Payload  []byte
}

// Wrap assembles a complete HTML document: the inline style in <head>, one
// <script> per block, then one <script src> per external URL, in the order
// given.
func Wrap(title string, blocks []ScriptBlock, externalScriptURLs []string, inlineStyle string) string {
	var b strings.Builder
	b.WriteString("<!doctype html>\n<html lang=\"en\">\n<head>\n")
	b.WriteString("  <meta charset=\"utf-8\" />\n")
	b.WriteString("  <meta name=\"viewport\" content=\"width=device-width, initial-scale=1\" />\n")
	fmt.Fprintf(&b, "  <title>%s</title>\n", escapeText(title))
	if inlineStyle != "" {
		fmt.Fprintf(&b, "  <style>\n%s\n  </style>\n", inlineStyle)
	}
	b.WriteString("</head>\n<body>\n")

	for _, block := range blocks {
		b.WriteString("  <script")
		if block.ID != "" {
			fmt.Fprintf(&b, " id=%q", block.ID)
		}
		if block.MIMEType != "" && block.MIMEType != MIMEJavaScript {
			fmt.Fprintf(&b, " type=%q", block.MIMEType)
		}
		b.WriteString(">\n")
		b.WriteString(EscapeScriptPayload(string(block.Payload)))
		b.WriteString("\n  </script>\n")
	}

	for _, url := range externalScriptURLs {
		fmt.Fprintf(&b, "  <script src=%q></script>\n", url)
	}

	b.WriteString("</body>\n</html>\n")
	return b.String()
}

// EscapeScriptPayload neutralizes script terminators inside an inlined
// payload. Required for every payload written into a <script> tag.
func EscapeScriptPayload(payload string) string {
	return strings.ReplaceAll(payload, "</script>", `<\/script>`)
}

func escapeText(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
