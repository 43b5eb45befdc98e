// Package apidoc assembles a minimal OpenAPI 3.0.3 document from endpoint
// descriptors.
//
// This is a best-effort assembler, not a validator: endpoints are never
// rejected for missing or odd fields. Empty parameter lists and request
// bodies are omitted, unparseable pieces degrade to sensible defaults, and a
// missing responses map synthesizes {"200": {"description": "OK"}}.
package apidoc

import (
	"encoding/json"
	"strings"

	"github.com/gunho/artifact/pkg/errors"
)

// Version written into every generated document.
const openAPIVersion = "3.0.3"

// DefaultInfoVersion is used when the request carries no version.
const DefaultInfoVersion = "1.0.0"

// Endpoint describes one API operation. Params entries are open mappings in
// the OpenAPI parameter shape ({in, name, required, schema, ...}); a param
// whose "in" is "body" or "requestBody" is legacy input and is converted
// into a request body instead of a parameter.
type Endpoint struct {
	Method      string                    `json:"method"`
	Path        string                    `json:"path"`
	Summary     string                    `json:"summary,omitempty"`
	Tags        []string                  `json:"tags,omitempty"`
	Params      []map[string]any          `json:"params,omitempty"`
	RequestBody map[string]any            `json:"requestBody,omitempty"`
	Responses   map[string]map[string]any `json:"responses,omitempty"`
}

// Operation is the per-method object under a path.
type Operation struct {
	Summary     string                    `json:"summary,omitempty"`
	Tags        []string                  `json:"tags,omitempty"`
	Parameters  []map[string]any          `json:"parameters,omitempty"`
	RequestBody map[string]any            `json:"requestBody,omitempty"`
	Responses   map[string]map[string]any `json:"responses"`
}

// Document is the OpenAPI-like root object.
type Document struct {
	OpenAPI string              `json:"openapi"`
	Info    Info                `json:"info"`
	Paths   map[string]PathItem `json:"paths"`
}

// Info mirrors the OpenAPI info object.
type Info struct {
	Title   string `json:"title"`
	Version string `json:"version"`
}

// PathItem groups operations by lowercased HTTP method.
type PathItem map[string]Operation

// Build assembles a document from endpoint descriptors. Endpoints are
// grouped by path, then by lowercased method; a later endpoint for the same
// path+method replaces the earlier one.
func Build(title, version string, endpoints []Endpoint) Document {
	if version == "" {
		version = DefaultInfoVersion
	}
	doc := Document{
		OpenAPI: openAPIVersion,
		Info:    Info{Title: title, Version: version},
		Paths:   make(map[string]PathItem, len(endpoints)),
	}

	for _, ep := range endpoints {
		method := strings.ToLower(ep.Method)
		op := Operation{
			Summary: ep.Summary,
			Tags:    ep.Tags,
		}

		requestBody := ep.RequestBody
		for _, param := range ep.Params {
			if param == nil {
				continue
			}
			if isBodyParam(param) {
				if requestBody == nil {
					requestBody = legacyParamToRequestBody(param)
				}
			} else {
				op.Parameters = append(op.Parameters, param)
			}
		}
		if body := sanitizeRequestBody(requestBody); len(body) > 0 {
			op.RequestBody = body
		}

		op.Responses = make(map[string]map[string]any, max(len(ep.Responses), 1))
		for status, resp := range ep.Responses {
			op.Responses[status] = resp
		}
		if len(op.Responses) == 0 {
			op.Responses["200"] = map[string]any{"description": "OK"}
		}

		item, ok := doc.Paths[ep.Path]
		if !ok {
			item = make(PathItem, 1)
			doc.Paths[ep.Path] = item
		}
		item[method] = op
	}

	return doc
}

// Render marshals a document to indented JSON bytes.
func Render(doc Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRender, err, "encode openapi document")
	}
	return data, nil
}

func isBodyParam(param map[string]any) bool {
	loc, _ := param["in"].(string)
	switch strings.ToLower(loc) {
	case "body", "requestbody":
		return true
	}
	return false
}

// sanitizeRequestBody strips UI-internal fields from a caller-supplied
// request body and coerces a string "required" to a boolean. Returns nil
// when nothing meaningful remains.
func sanitizeRequestBody(body map[string]any) map[string]any {
	if len(body) == 0 {
		return nil
	}
	copy := make(map[string]any, len(body))
	for k, v := range body {
		copy[k] = v
	}
	delete(copy, "enabled")
	delete(copy, "contentType")

	if required, ok := copy["required"].(string); ok {
		copy["required"] = strings.EqualFold(required, "true")
	}

	if content, ok := copy["content"]; ok {
		if content == nil {
			delete(copy, "content")
		} else if m, isMap := content.(map[string]any); isMap && len(m) == 0 {
			delete(copy, "content")
		}
	}

	if len(copy) == 0 {
		return nil
	}
	return copy
}

// legacyParamToRequestBody converts a single body-typed param into a
// requestBody object, wrapping its schema and example into an
// application/json media type (or the param's own contentType).
func legacyParamToRequestBody(param map[string]any) map[string]any {
	body := make(map[string]any)
	if desc, ok := param["description"]; ok && desc != nil {
		body["description"] = desc
	}
	switch required := param["required"].(type) {
	case bool:
		if required {
			body["required"] = true
		}
	case string:
		if strings.EqualFold(required, "true") {
			body["required"] = true
		}
	}

	contentType := "application/json"
	if ct, ok := param["contentType"].(string); ok && strings.TrimSpace(ct) != "" {
		contentType = ct
	}

	mediaType := make(map[string]any)
	if schema, ok := param["schema"].(map[string]any); ok {
		mediaType["schema"] = schema
	} else {
		mediaType["schema"] = map[string]any{"type": "object"}
	}
	if example, ok := param["example"]; ok && example != nil {
		mediaType["example"] = example
	}

	body["content"] = map[string]any{contentType: mediaType}
	return body
}
