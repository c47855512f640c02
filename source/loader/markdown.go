package loader

import (
	"fmt"
	"os"

	"github.com/c360studio/octiron/ldcontext"
	"github.com/c360studio/octiron/rdf"
	"github.com/c360studio/octiron/source/parser"
	"github.com/c360studio/octiron/vocabulary/octa"
)

// loadMarkdown reads facts from a Markdown file's front matter.
func loadMarkdown(req Request) ([]rdf.Triple, error) {
	content, err := os.ReadFile(req.Path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	doc, err := parser.ParseMarkdown(req.Path, content)
	if err != nil {
		return nil, err
	}
	if !doc.HasFrontmatter() {
		return nil, nil
	}

	data, _ := ldcontext.ConvertDollarSigns(doc.Frontmatter).(map[string]any)
	if _, ok := data["@id"]; !ok {
		data["@id"] = req.LocalIRI
	}
	return projectDocument(req, data)
}

func appendPageFacts(triples []rdf.Triple, req Request) []rdf.Triple {
	page := rdf.IRI(req.LocalIRI)
	if req.GlobalURL != "" {
		triples = append(triples, rdf.NewTriple(page, rdf.IRI(octa.URL), rdf.String(req.GlobalURL)))
	}
	return append(triples, rdf.NewTriple(page, rdf.IRI(octa.RDFType), rdf.IRI(octa.Page)))
}
