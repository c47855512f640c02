// Package navigation reorders a documentation navigation tree using the
// octa:position facts of the graph and links pages for previous/next
// affordances.
package navigation

import (
	"cmp"
	"fmt"
	"io"
	"math"
	"path"
	"slices"
	"strings"

	"github.com/c360studio/octiron"
	"github.com/c360studio/octiron/sparql"
)

// Kind discriminates navigation items.
type Kind int

// Navigation item kinds.
const (
	KindPage Kind = iota
	KindSection
	KindLink
)

func (k Kind) String() string {
	switch k {
	case KindPage:
		return "page"
	case KindSection:
		return "section"
	case KindLink:
		return "link"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Default positions of items without an explicit octa:position.
const (
	PageDefaultPosition = 0

	// IndexDefaultPosition ranks an index page before every ordinary page
	// of its section. A section inherits it from its index page.
	IndexDefaultPosition = math.MinInt32
)

// Node is an item of the navigation tree.
type Node struct {
	Kind  Kind
	Title string

	// SrcPath is the slash separated path of a page relative to the
	// documentation root. Sections and links leave it empty.
	SrcPath string
	URL     string

	Position int
	Children []*Node

	// Previous and Next link pages in reading order. Set by Generate.
	Previous *Node
	Next     *Node
}

// IsIndex reports whether the node is the index page of its section.
func (n *Node) IsIndex() bool {
	return n.Kind == KindPage && path.Base(n.SrcPath) == "index.md"
}

// IRI returns the local IRI of a page.
func (n *Node) IRI() string {
	return octiron.SrcPathToIRI(n.SrcPath)
}

// Querier runs queries against the graph. Both *octiron.Octiron and
// *sparql.Executor satisfy it.
type Querier interface {
	Query(text string, bindings map[string]any) (*sparql.Result, error)
}

const positionQuery = `SELECT ?position WHERE { ?iri octa:position ?position }`

const titleQuery = `SELECT ?title WHERE { ?iri octa:title ?title }`

// Processor rewrites navigation trees based on the graph.
type Processor struct {
	Graph Querier
}

// NewProcessor creates a processor reading positions from graph.
func NewProcessor(graph Querier) *Processor {
	return &Processor{Graph: graph}
}

// Generate assigns positions to every item of root, sorts each section's
// children and links pages in pre-order. root is modified in place and
// returned.
func (p *Processor) Generate(root *Node) (*Node, error) {
	if err := p.assign(root); err != nil {
		return nil, err
	}
	Link(root)
	return root, nil
}

func (p *Processor) assign(n *Node) error {
	switch n.Kind {
	case KindPage:
		pos, ok, err := p.lookupPosition(n.IRI())
		if err != nil {
			return err
		}
		switch {
		case ok:
			n.Position = pos
		case n.IsIndex():
			n.Position = IndexDefaultPosition
		default:
			n.Position = PageDefaultPosition
		}
	case KindSection:
		for _, child := range n.Children {
			if err := p.assign(child); err != nil {
				return err
			}
		}
		Sort(n.Children)
		n.Position = PageDefaultPosition
		if idx := slices.IndexFunc(n.Children, (*Node).IsIndex); idx >= 0 {
			n.Position = n.Children[idx].Position
		}
	}
	return nil
}

func (p *Processor) lookupPosition(iri string) (int, bool, error) {
	v, ok, err := p.lookup(positionQuery, iri, "position")
	if err != nil || !ok {
		return 0, false, err
	}
	switch v := v.(type) {
	case int64:
		return int(v), true, nil
	case float64:
		return int(v), true, nil
	default:
		return 0, false, nil
	}
}

func (p *Processor) lookup(query, iri, column string) (any, bool, error) {
	if p.Graph == nil {
		return nil, false, nil
	}
	res, err := p.Graph.Query(query, map[string]any{"iri": iri})
	if err != nil {
		return nil, false, fmt.Errorf("look up %s of %s: %w", column, iri, err)
	}
	records := res.Records()
	if len(records) == 0 {
		return nil, false, nil
	}
	v, ok := records[0][column]
	return v, ok, nil
}

// Sort orders nodes by (not index, position, title).
func Sort(nodes []*Node) {
	slices.SortStableFunc(nodes, func(a, b *Node) int {
		if a.IsIndex() != b.IsIndex() {
			if a.IsIndex() {
				return -1
			}
			return 1
		}
		return cmp.Or(
			cmp.Compare(a.Position, b.Position),
			strings.Compare(a.Title, b.Title),
		)
	})
}

// Pages returns the pages of the tree in pre-order.
func Pages(root *Node) []*Node {
	var pages []*Node
	var walk func(n *Node)
	walk = func(n *Node) {
		if n.Kind == KindPage {
			pages = append(pages, n)
		}
		for _, child := range n.Children {
			walk(child)
		}
	}
	walk(root)
	return pages
}

// Link sets Previous and Next of every page to its neighbours in pre-order.
func Link(root *Node) {
	pages := Pages(root)
	for i, page := range pages {
		page.Previous, page.Next = nil, nil
		if i > 0 {
			page.Previous = pages[i-1]
		}
		if i < len(pages)-1 {
			page.Next = pages[i+1]
		}
	}
}

// Print writes an indented outline of the tree.
func Print(w io.Writer, root *Node) error {
	var walk func(n *Node, depth int) error
	walk = func(n *Node, depth int) error {
		indent := strings.Repeat("  ", depth)
		var err error
		switch n.Kind {
		case KindPage:
			_, err = fmt.Fprintf(w, "%s- %s (%s) [%d]\n", indent, n.Title, "/"+n.URL, n.Position)
		case KindLink:
			_, err = fmt.Fprintf(w, "%s- %s -> %s\n", indent, n.Title, n.URL)
		default:
			_, err = fmt.Fprintf(w, "%s+ %s [%d]\n", indent, n.Title, n.Position)
		}
		if err != nil {
			return err
		}
		for _, child := range n.Children {
			if err := walk(child, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	for _, child := range root.Children {
		if err := walk(child, 0); err != nil {
			return err
		}
	}
	return nil
}
