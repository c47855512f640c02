package loader

import (
	"fmt"
	"os"
	"strings"

	ttl "github.com/knakk/rdf"

	"github.com/c360studio/octiron/rdf"
)

// loadTurtle reads facts from a Turtle file. The directory context does not
// apply; blank node labels are scoped to the file. Relative IRIs resolve
// against the file's directory unless the document declares its own base.
func loadTurtle(req Request) ([]rdf.Triple, error) {
	f, err := os.Open(req.Path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	dec := ttl.NewTripleDecoder(f, ttl.Turtle)
	base, err := ttl.NewIRI(directoryIRI(req.LocalIRI))
	if err != nil {
		return nil, fmt.Errorf("base IRI: %w", err)
	}
	if err := dec.SetOption(ttl.Base, base); err != nil {
		return nil, err
	}

	decoded, err := dec.DecodeAll()
	if err != nil {
		return nil, fmt.Errorf("decode turtle: %w", err)
	}

	triples := make([]rdf.Triple, 0, len(decoded))
	for _, t := range decoded {
		triples = append(triples, rdf.NewTriple(
			turtleTerm(req.LocalIRI, t.Subj),
			turtleTerm(req.LocalIRI, t.Pred),
			turtleTerm(req.LocalIRI, t.Obj),
		))
	}
	return triples, nil
}

// directoryIRI trims a local IRI to its directory: local:docs/a.ttl becomes
// local:docs/ and local:a.ttl becomes local:.
func directoryIRI(localIRI string) string {
	if i := strings.LastIndexAny(localIRI, "/:"); i >= 0 {
		return localIRI[:i+1]
	}
	return localIRI
}

func turtleTerm(localIRI string, t ttl.Term) rdf.Term {
	switch t.Type() {
	case ttl.TermBlank:
		return scopedBlank(localIRI, t.String())
	case ttl.TermLiteral:
		lit := t.(ttl.Literal)
		if lang := lit.Lang(); lang != "" {
			return rdf.LangString(lit.String(), lang)
		}
		return rdf.Literal(lit.String(), lit.DataType.String())
	default:
		return rdf.IRI(t.String())
	}
}
