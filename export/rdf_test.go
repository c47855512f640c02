package export_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/c360studio/octiron/export"
	"github.com/c360studio/octiron/graph"
	"github.com/c360studio/octiron/rdf"
	"github.com/c360studio/octiron/vocabulary/octa"
)

func newStore() *graph.Store {
	store := graph.NewStore(octa.DefaultNamespaces())
	page := rdf.IRI("local:a.md")
	store.AddN([]rdf.Quad{
		{Subject: page, Predicate: rdf.IRI(octa.RDFType), Object: rdf.IRI(octa.Page), Graph: page},
		{Subject: page, Predicate: rdf.IRI(octa.Title), Object: rdf.String("A"), Graph: page},
		{Subject: page, Predicate: rdf.IRI(octa.Position), Object: rdf.Integer(2), Graph: page},
		{Subject: page, Predicate: rdf.IRI(octa.Title), Object: rdf.String("Alpha"), Graph: rdf.IRI(octa.InferenceGraph)},
		{Subject: rdf.Blank("b0"), Predicate: rdf.IRI("https://schema.org/name"), Object: rdf.LangString("Tom", "en"), Graph: page},
	})
	return store
}

func TestExportNQuads(t *testing.T) {
	output, err := export.NewExporter(newStore()).String(export.FormatNQuads)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 quads, got %d:\n%s", len(lines), output)
	}
	for _, line := range lines {
		if !strings.HasSuffix(line, " .") {
			t.Errorf("N-Quads line should end with ' .': %s", line)
		}
	}
	if !strings.Contains(output, `<local:a.md> <https://ns.octadocs.io/title> "Alpha" <https://ns.octadocs.io/inference> .`) {
		t.Errorf("N-Quads output should keep the inference sub-graph:\n%s", output)
	}
	if !strings.Contains(output, `<local:a.md> <https://ns.octadocs.io/position> "2"^^<http://www.w3.org/2001/XMLSchema#integer> <local:a.md> .`) {
		t.Errorf("N-Quads output should type the position:\n%s", output)
	}
	if !strings.Contains(output, `_:b0 <https://schema.org/name> "Tom"@en <local:a.md> .`) {
		t.Errorf("N-Quads output should relabel the blank node:\n%s", output)
	}
}

func TestExportTurtle(t *testing.T) {
	output, err := export.NewExporter(newStore()).String(export.FormatTurtle)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	if !strings.Contains(output, "@prefix octa:\t<https://ns.octadocs.io/> .\n") {
		t.Errorf("Turtle output should declare the octa prefix:\n%s", output)
	}
	if strings.Contains(output, "@prefix xsd:") {
		t.Errorf("Turtle output should only declare prefixes it uses:\n%s", output)
	}
	if !strings.Contains(output, "<local:a.md>\ta\tocta:Page ;\n\tocta:position\t2 ;\n\tocta:title\t") {
		t.Errorf("Turtle output should group the page facts:\n%s", output)
	}
	if !strings.Contains(output, `"A" ,`) && !strings.Contains(output, `"Alpha" ,`) {
		t.Errorf("Turtle output should list both titles as an object list:\n%s", output)
	}
	if !strings.Contains(output, "_:b0\tschema:name\t\"Tom\"@en .") {
		t.Errorf("Turtle output should contain the blank node:\n%s", output)
	}
	if strings.Count(output, "<local:a.md>") != 1 {
		t.Errorf("the page should be stated once:\n%s", output)
	}
}

func TestExportRejectsUnencodableIRI(t *testing.T) {
	store := graph.NewStore(octa.DefaultNamespaces())
	page := rdf.IRI("local:my page.md")
	store.Add(rdf.Quad{Subject: page, Predicate: rdf.IRI(octa.RDFType), Object: rdf.IRI(octa.Page), Graph: page})

	for _, format := range []export.Format{export.FormatNQuads, export.FormatTurtle} {
		if _, err := export.NewExporter(store).String(format); err == nil {
			t.Errorf("%s: expected an error for an IRI with a space", format)
		}
	}
}

func TestExportEmptyStore(t *testing.T) {
	for _, format := range []export.Format{export.FormatNQuads, export.FormatTurtle} {
		output, err := export.NewExporter(graph.NewStore(nil)).String(format)
		if err != nil {
			t.Fatalf("%s: Export failed: %v", format, err)
		}
		if output != "" {
			t.Errorf("%s: expected no output, got %q", format, output)
		}
	}
}

func TestExportJSONLD(t *testing.T) {
	output, err := export.NewExporter(newStore()).String(export.FormatJSONLD)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	var doc struct {
		Context map[string]string `json:"@context"`
		Graph   []struct {
			ID    string           `json:"@id"`
			Graph []map[string]any `json:"@graph"`
		} `json:"@graph"`
	}
	if err := json.Unmarshal([]byte(output), &doc); err != nil {
		t.Fatalf("JSON-LD output is not valid JSON: %v", err)
	}
	if doc.Context["octa"] != octa.Namespace {
		t.Error("JSON-LD context should carry the namespace table")
	}
	if len(doc.Graph) != 2 {
		t.Fatalf("expected 2 named graphs, got %d", len(doc.Graph))
	}

	var page map[string]any
	for _, g := range doc.Graph {
		if g.ID != "local:a.md" {
			continue
		}
		for _, node := range g.Graph {
			if node["@id"] == "local:a.md" {
				page = node
			}
		}
	}
	if page == nil {
		t.Fatal("page node missing from its sub-graph")
	}
	if types, _ := page["@type"].([]any); len(types) != 1 || types[0] != octa.Page {
		t.Errorf("unexpected @type: %v", page["@type"])
	}
	position, _ := page[octa.Position].([]any)
	if len(position) != 1 {
		t.Fatalf("unexpected position: %v", page[octa.Position])
	}
	if value := position[0].(map[string]any); value["@value"] != "2" || value["@type"] != octa.XSDInteger {
		t.Errorf("unexpected position value: %v", value)
	}
}

func TestExportUnsupportedFormat(t *testing.T) {
	if _, err := export.NewExporter(newStore()).String("rdfxml"); err == nil {
		t.Error("expected an error for an unsupported format")
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want export.Format
	}{
		{"turtle", export.FormatTurtle},
		{"TTL", export.FormatTurtle},
		{".nq", export.FormatNQuads},
		{"jsonld", export.FormatJSONLD},
	}
	for _, tt := range tests {
		got, err := export.ParseFormat(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
	if _, err := export.ParseFormat("xml"); err == nil {
		t.Error("expected an error for an unknown format")
	}
}
