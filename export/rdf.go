// Package export serializes the octiron graph to standard RDF formats.
package export

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	ttl "github.com/knakk/rdf"

	"github.com/c360studio/octiron/graph"
	"github.com/c360studio/octiron/rdf"
)

// Format specifies the output serialization format.
type Format string

const (
	// FormatNQuads produces N-Quads (.nq) output, one fact per line with its
	// sub-graph.
	FormatNQuads Format = "nquads"

	// FormatTurtle produces Turtle (.ttl) output of the union of all
	// sub-graphs.
	FormatTurtle Format = "turtle"

	// FormatJSONLD produces flattened JSON-LD (.jsonld) output with one
	// named graph per sub-graph.
	FormatJSONLD Format = "jsonld"
)

// Exporter serializes a graph store.
type Exporter struct {
	store    *graph.Store
	prefixes map[string]string
}

// NewExporter creates an exporter for store using its namespace bindings
// as prefixes.
func NewExporter(store *graph.Store) *Exporter {
	return &Exporter{
		store:    store,
		prefixes: store.Namespaces(),
	}
}

// SetPrefix sets a namespace prefix.
func (e *Exporter) SetPrefix(prefix, iri string) {
	e.prefixes[prefix] = iri
}

// Export writes the graph to w in the given format.
func (e *Exporter) Export(w io.Writer, format Format) error {
	switch format {
	case FormatNQuads:
		return e.writeNQuads(w)
	case FormatTurtle:
		return e.writeTurtle(w)
	case FormatJSONLD:
		return e.writeJSONLD(w)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// String serializes the graph to a string.
func (e *Exporter) String(format Format) (string, error) {
	var sb strings.Builder
	if err := e.Export(&sb, format); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (e *Exporter) writeNQuads(w io.Writer) error {
	conv := newTermConverter()
	enc := ttl.NewQuadEncoder(w, ttl.NQuads)
	for _, q := range e.store.Quads() {
		quad, err := conv.quad(q)
		if err != nil {
			return err
		}
		if err := enc.Encode(quad); err != nil {
			return err
		}
	}
	return enc.Close()
}

func (e *Exporter) writeTurtle(w io.Writer) error {
	triples := e.store.Triples()
	slices.SortFunc(triples, func(a, b rdf.Triple) int {
		return cmp.Or(
			strings.Compare(a.Subject.String(), b.Subject.String()),
			strings.Compare(a.Predicate.String(), b.Predicate.String()),
			strings.Compare(a.Object.String(), b.Object.String()),
		)
	})

	conv := newTermConverter()
	out := make([]ttl.Triple, 0, len(triples))
	for _, t := range triples {
		triple, err := conv.triple(t)
		if err != nil {
			return err
		}
		out = append(out, triple)
	}

	enc := ttl.NewTripleEncoder(w, ttl.Turtle)
	enc.GenerateNamespaces = false
	for _, prefix := range slices.Sorted(maps.Keys(e.prefixes)) {
		if _, taken := enc.Namespaces[e.prefixes[prefix]]; !taken {
			enc.Namespaces[e.prefixes[prefix]] = prefix
		}
	}
	if err := enc.EncodeAll(out); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	if len(out) == 0 {
		return nil
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// termConverter maps store terms to encoder terms. Blank nodes are
// relabelled b0, b1, ... in order of first use, since store labels carry
// the file IRI and are not valid blank node labels.
type termConverter struct {
	blanks map[string]ttl.Blank
}

func newTermConverter() *termConverter {
	return &termConverter{blanks: make(map[string]ttl.Blank)}
}

func (c *termConverter) quad(q rdf.Quad) (ttl.Quad, error) {
	triple, err := c.triple(q.Triple())
	if err != nil {
		return ttl.Quad{}, err
	}
	ctx, err := c.subject(q.Graph)
	if err != nil {
		return ttl.Quad{}, err
	}
	return ttl.Quad{Triple: triple, Ctx: ctx}, nil
}

func (c *termConverter) triple(t rdf.Triple) (ttl.Triple, error) {
	s, err := c.subject(t.Subject)
	if err != nil {
		return ttl.Triple{}, err
	}
	p, err := ttl.NewIRI(t.Predicate.Value)
	if err != nil {
		return ttl.Triple{}, fmt.Errorf("predicate %s: %w", t.Predicate, err)
	}
	o, err := c.object(t.Object)
	if err != nil {
		return ttl.Triple{}, err
	}
	return ttl.Triple{Subj: s, Pred: p, Obj: o}, nil
}

func (c *termConverter) subject(t rdf.Term) (ttl.Subject, error) {
	if t.IsBlank() {
		return c.blank(t)
	}
	iri, err := ttl.NewIRI(t.Value)
	if err != nil {
		return nil, fmt.Errorf("IRI %s: %w", t, err)
	}
	return iri, nil
}

func (c *termConverter) object(t rdf.Term) (ttl.Object, error) {
	switch t.Kind {
	case rdf.KindBlank:
		return c.blank(t)
	case rdf.KindLiteral:
		if t.Lang != "" {
			lit, err := ttl.NewLangLiteral(t.Value, t.Lang)
			if err != nil {
				return nil, fmt.Errorf("literal %s: %w", t, err)
			}
			return lit, nil
		}
		dt, err := ttl.NewIRI(cmp.Or(t.Datatype, xsdString))
		if err != nil {
			return nil, fmt.Errorf("datatype of %s: %w", t, err)
		}
		return ttl.NewTypedLiteral(t.Value, dt), nil
	default:
		iri, err := ttl.NewIRI(t.Value)
		if err != nil {
			return nil, fmt.Errorf("IRI %s: %w", t, err)
		}
		return iri, nil
	}
}

func (c *termConverter) blank(t rdf.Term) (ttl.Blank, error) {
	if b, ok := c.blanks[t.Value]; ok {
		return b, nil
	}
	b, err := ttl.NewBlank("b" + strconv.Itoa(len(c.blanks)))
	if err != nil {
		return ttl.Blank{}, err
	}
	c.blanks[t.Value] = b
	return b, nil
}

const rdfType = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"

type jsonldDocument struct {
	Context map[string]string `json:"@context"`
	Graph   []jsonldGraph     `json:"@graph"`
}

type jsonldGraph struct {
	ID    string           `json:"@id"`
	Graph []map[string]any `json:"@graph"`
}

func (e *Exporter) writeJSONLD(w io.Writer) error {
	doc := jsonldDocument{
		Context: maps.Clone(e.prefixes),
		Graph:   []jsonldGraph{},
	}
	for _, g := range e.store.Graphs() {
		doc.Graph = append(doc.Graph, jsonldGraph{
			ID:    jsonldID(g),
			Graph: jsonldNodes(e.store.Match(rdf.Quad{Graph: g})),
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(doc)
}

// jsonldNodes groups quads into node objects keyed by full predicate IRIs.
func jsonldNodes(quads []rdf.Quad) []map[string]any {
	graph.SortQuads(quads)
	var nodes []map[string]any
	var node map[string]any
	var subject rdf.Term
	for _, q := range quads {
		if node == nil || q.Subject != subject {
			subject = q.Subject
			node = map[string]any{"@id": jsonldID(subject)}
			nodes = append(nodes, node)
		}
		if q.Predicate.Value == rdfType && q.Object.IsIRI() {
			node["@type"] = appendValue(node["@type"], q.Object.Value)
			continue
		}
		node[q.Predicate.Value] = appendValue(node[q.Predicate.Value], jsonldValue(q.Object))
	}
	return nodes
}

func appendValue(existing, v any) any {
	if existing == nil {
		return []any{v}
	}
	return append(existing.([]any), v)
}

func jsonldID(t rdf.Term) string {
	if t.IsBlank() {
		return "_:" + t.Value
	}
	return t.Value
}

func jsonldValue(t rdf.Term) map[string]any {
	switch {
	case t.IsResource():
		return map[string]any{"@id": jsonldID(t)}
	case t.Lang != "":
		return map[string]any{"@value": t.Value, "@language": t.Lang}
	case t.Datatype == "" || t.Datatype == xsdString:
		return map[string]any{"@value": t.Value}
	default:
		return map[string]any{"@value": t.Value, "@type": t.Datatype}
	}
}

const xsdString = "http://www.w3.org/2001/XMLSchema#string"
