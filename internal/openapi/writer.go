package openapi

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"sigs.k8s.io/yaml"
)

// Writer renders an OpenAPI document to JSON or YAML. The marshal functions
// are fields so tests can substitute failures.
type Writer struct {
	jsonIndent func(data interface{}) ([]byte, error)
	jsonToYAML func(data []byte) ([]byte, error)
}

// NewWriter creates a Writer with the standard marshalers.
func NewWriter() *Writer {
	return &Writer{
		jsonIndent: func(data interface{}) ([]byte, error) {
			return json.MarshalIndent(data, "", "  ")
		},
		jsonToYAML: yaml.JSONToYAML,
	}
}

// Render serializes the document in the requested format ("yaml" or "json").
func (w *Writer) Render(doc *openapi3.T, format string) ([]byte, error) {
	raw, err := doc.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal openapi document: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "yaml", "yml":
		out, err := w.jsonToYAML(raw)
		if err != nil {
			return nil, fmt.Errorf("convert openapi document to yaml: %w", err)
		}
		return out, nil
	case "json":
		var indented interface{}
		if err := json.Unmarshal(raw, &indented); err != nil {
			return nil, fmt.Errorf("reparse openapi document: %w", err)
		}
		return w.jsonIndent(indented)
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}

// WriteFile renders the document and writes it to the given path, creating
// parent directories as needed.
func (w *Writer) WriteFile(doc *openapi3.T, format, path string) error {
	out, err := w.Render(doc, format)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
