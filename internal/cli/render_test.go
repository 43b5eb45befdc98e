package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderCommandWritesFiles(t *testing.T) {
	reqPath := filepath.Join(t.TempDir(), "request.json")
	request := `{
		"kind": "flowchart",
		"chart": {
			"title": "Checkout",
			"layout": "LR",
			"nodes": [
				{"id": "web", "label": "Web", "shape": "external"},
				{"id": "api", "label": "API", "shape": "service"}
			],
			"edges": [{"from": "web", "to": "api", "label": "POST /checkout"}]
		}
	}`
	if err := os.WriteFile(reqPath, []byte(request), 0o644); err != nil {
		t.Fatalf("writing request: %v", err)
	}

	outDir := t.TempDir()
	cmd := newRenderCmd()
	cmd.SetArgs([]string{reqPath, "--output", outDir})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("render command: %v", err)
	}

	var rendered []string
	err := filepath.WalkDir(outDir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rendered = append(rendered, filepath.Base(p))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walking output: %v", err)
	}

	want := map[string]bool{"checkout.mmd": false, "checkout.json": false, "checkout.html": false}
	for _, name := range rendered {
		if _, ok := want[name]; ok {
			want[name] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing output file %s (got %v)", name, rendered)
		}
	}
}

func TestRenderCommandFormatSubset(t *testing.T) {
	reqPath := filepath.Join(t.TempDir(), "request.json")
	request := `{
		"kind": "apidoc",
		"title": "Orders API",
		"endpoints": [{"method": "GET", "path": "/orders"}]
	}`
	if err := os.WriteFile(reqPath, []byte(request), 0o644); err != nil {
		t.Fatalf("writing request: %v", err)
	}

	outDir := t.TempDir()
	cmd := newRenderCmd()
	cmd.SetArgs([]string{reqPath, "--output", outDir, "--format", "json"})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("render command: %v", err)
	}

	var rendered []string
	_ = filepath.WalkDir(outDir, func(p string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			rendered = append(rendered, filepath.Base(p))
		}
		return nil
	})
	if len(rendered) != 1 || !strings.HasSuffix(rendered[0], "-openapi.json") {
		t.Errorf("rendered = %v, want only the OpenAPI file", rendered)
	}
}

func TestRenderCommandBadRequestFile(t *testing.T) {
	cmd := newRenderCmd()
	cmd.SetArgs([]string{"/does/not/exist.json"})
	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Error("expected error for missing request file")
	}
}
