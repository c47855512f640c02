package loader

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/piprate/json-gold/ld"

	"github.com/c360studio/octiron/ldcontext"
	"github.com/c360studio/octiron/rdf"
	"github.com/c360studio/octiron/vocabulary/octa"
)

// hierarchicalBase stands in for the opaque local: scheme while the JSON-LD
// processor resolves relative IRIs; URL resolution cannot join a path onto
// "local:".
const hierarchicalBase = "http://octiron.invalid/"

// maxExactInteger is the largest integer a JSON number carries exactly.
const maxExactInteger = 1 << 53

// projectDocument converts a mapping describing the page at req.LocalIRI to
// triples under the directory context and appends the page facts. The
// document's own @context, if any, applies on top of the directory context.
// Remote contexts are refused.
func projectDocument(req Request, doc map[string]any) ([]rdf.Triple, error) {
	var ctx any = rebase(prepare(req.Context))
	switch local := doc["@context"].(type) {
	case nil:
	case map[string]any:
		ctx = rebase(prepare(ldcontext.DeepMerge(req.Context, local)))
	default:
		ctx = []any{ctx, local}
	}
	doc = maps.Clone(doc)
	delete(doc, "@context")

	page := rdf.IRI(req.LocalIRI)
	if id, ok := doc["@id"].(string); ok && id != req.LocalIRI {
		doc[octa.SubjectOf] = map[string]any{"@id": req.LocalIRI}
	}

	input, _ := prepare(doc).(map[string]any)
	input["@context"] = ctx

	opts := ld.NewJsonLdOptions("")
	opts.DocumentLoader = offlineLoader{}
	out, err := ld.NewJsonLdProcessor().ToRDF(input, opts)
	if err != nil {
		return nil, fmt.Errorf("expand JSON-LD: %w", err)
	}
	dataset, ok := out.(*ld.RDFDataset)
	if !ok {
		return nil, fmt.Errorf("expand JSON-LD: unexpected result %T", out)
	}

	var triples []rdf.Triple
	for _, name := range slices.Sorted(maps.Keys(dataset.Graphs)) {
		for _, q := range dataset.Graphs[name] {
			s, okS := datasetTerm(req.LocalIRI, q.Subject)
			p, okP := datasetTerm(req.LocalIRI, q.Predicate)
			o, okO := datasetTerm(req.LocalIRI, q.Object)
			if !okS || !okP || !okO {
				continue
			}
			if s == page && o == page && p == rdf.IRI(octa.SubjectOf) {
				continue
			}
			triples = append(triples, rdf.NewTriple(s, p, o))
		}
	}
	return appendPageFacts(triples, req), nil
}

// offlineLoader refuses remote contexts. Contexts come from the
// documentation tree and are inlined before processing.
type offlineLoader struct{}

func (offlineLoader) LoadDocument(u string) (*ld.RemoteDocument, error) {
	return nil, fmt.Errorf("remote context %q is not supported", u)
}

// datasetTerm converts a processor node, scoping blank node labels to the
// file and mapping the stand-in base back to local:.
func datasetTerm(localIRI string, n ld.Node) (rdf.Term, bool) {
	switch n := n.(type) {
	case *ld.IRI:
		return rdf.IRI(unbase(n.Value)), true
	case *ld.BlankNode:
		return scopedBlank(localIRI, n.Attribute), true
	case *ld.Literal:
		if n.Language != "" {
			return rdf.LangString(n.Value, n.Language), true
		}
		return rdf.Literal(n.Value, unbase(n.Datatype)), true
	}
	return rdf.Term{}, false
}

// scopedBlank names a document blank node label within the file.
func scopedBlank(localIRI, label string) rdf.Term {
	return rdf.Blank(localIRI + "/" + strings.TrimPrefix(label, "_:"))
}

func unbase(iri string) string {
	if rest, ok := strings.CutPrefix(iri, hierarchicalBase); ok {
		return octa.Local + rest
	}
	return iri
}

// rebase swaps local: @base values of a context for the stand-in base.
func rebase(v any) any {
	switch v := v.(type) {
	case map[string]any:
		for k, item := range v {
			if base, ok := item.(string); ok && k == "@base" {
				if rest, found := strings.CutPrefix(base, octa.Local); found {
					v[k] = hierarchicalBase + rest
				}
				continue
			}
			v[k] = rebase(item)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = rebase(item)
		}
		return v
	}
	return v
}

// prepare returns a copy of v the processor accepts: YAML timestamps become
// plain strings, integers become JSON numbers, and lists become sets so
// their members are stated as repeated values.
func prepare(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			switch {
			case k == "@list":
				k = "@set"
			case k == "@container" && item == "@list":
				item = "@set"
			}
			out[k] = prepare(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = prepare(item)
		}
		return out
	case time.Time:
		return rdf.Date(v).Value
	case int:
		return integer(int64(v))
	case int64:
		return integer(v)
	case uint64:
		if v > math.MaxInt64 {
			return map[string]any{"@value": strconv.FormatUint(v, 10), "@type": octa.XSDInteger}
		}
		return integer(int64(v))
	}
	return v
}

func integer(v int64) any {
	if v > maxExactInteger || v < -maxExactInteger {
		return map[string]any{"@value": strconv.FormatInt(v, 10), "@type": octa.XSDInteger}
	}
	return float64(v)
}

func isContainerOnly(obj map[string]any) bool {
	hasMembers := false
	for k := range obj {
		switch k {
		case "@graph", "@included":
			hasMembers = true
		case "@context":
		default:
			return false
		}
	}
	return hasMembers
}
