// Package ldcontext resolves the JSON-LD context in effect for a directory
// of the documentation tree. Contexts are inherited: every directory sees
// the built-in default overlaid with each context file from the root down
// to the directory itself.
package ldcontext

import "github.com/c360studio/octiron/vocabulary/octa"

// Context is a JSON-LD context document.
type Context = map[string]any

// DefaultContext returns a fresh copy of the built-in context.
func DefaultContext() Context {
	idType := func() map[string]any { return map[string]any{"@type": "@id"} }
	return Context{
		"@vocab": octa.Local,
		"@base":  octa.Local,

		"rdf":    octa.RDF,
		"rdfs":   octa.RDFS,
		"owl":    octa.OWL,
		"xsd":    octa.XSD,
		"schema": octa.Schema,
		"octa":   octa.Namespace,

		"label":   "rdfs:label",
		"comment": "rdfs:comment",

		"rdfs:isDefinedBy": idType(),
		"rdfs:subClassOf":  idType(),
		"rdfs:domain":      idType(),
		"rdfs:range":       idType(),
		"octa:subjectOf":   idType(),
		"octa:about":       idType(),
	}
}

// DeepMerge returns a new map holding base overlaid with overlay. Nested
// maps present on both sides merge key by key; any other overlay value
// replaces the base value wholesale. Neither input is modified and the
// result shares no maps or slices with them.
func DeepMerge(base, overlay map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(overlay))
	for k, v := range base {
		out[k] = deepCopy(v)
	}
	for k, v := range overlay {
		if ov, ok := v.(map[string]any); ok {
			if bv, ok := out[k].(map[string]any); ok {
				out[k] = DeepMerge(bv, ov)
				continue
			}
		}
		out[k] = deepCopy(v)
	}
	return out
}

func deepCopy(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = deepCopy(e)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = deepCopy(e)
		}
		return out
	default:
		return v
	}
}
