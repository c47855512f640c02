package loader

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/octiron/ldcontext"
	"github.com/c360studio/octiron/rdf"
)

// loadYAML reads facts from a YAML-LD data file. A top-level mapping
// describes the page itself unless it names another @id; a top-level list
// holds independent nodes.
func loadYAML(req Request) ([]rdf.Triple, error) {
	content, err := os.ReadFile(req.Path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, nil
	}

	var raw any
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	switch data := ldcontext.ConvertDollarSigns(raw).(type) {
	case nil:
		return nil, nil
	case map[string]any:
		if len(data) == 0 {
			return nil, nil
		}
		if _, ok := data["@id"]; !ok && !isContainerOnly(data) {
			data["@id"] = req.LocalIRI
		}
		return projectDocument(req, data)
	case []any:
		if len(data) == 0 {
			return nil, nil
		}
		return projectDocument(req, map[string]any{"@graph": data})
	default:
		return nil, fmt.Errorf("expected a mapping or a list, got %T", data)
	}
}
