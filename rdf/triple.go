package rdf

import "iter"

// Triple is a single subject-predicate-object fact.
type Triple struct {
	Subject   Term
	Predicate Term
	Object    Term
}

// NewTriple builds a triple.
func NewTriple(s, p, o Term) Triple {
	return Triple{Subject: s, Predicate: p, Object: o}
}

// AsQuad scopes the triple to a named graph.
func (t Triple) AsQuad(graph Term) Quad {
	return Quad{Subject: t.Subject, Predicate: t.Predicate, Object: t.Object, Graph: graph}
}

// String renders the triple as an N-Triples statement.
func (t Triple) String() string {
	return t.Subject.String() + " " + t.Predicate.String() + " " + t.Object.String() + " ."
}

// Quad is a triple that belongs to a named graph.
type Quad struct {
	Subject   Term
	Predicate Term
	Object    Term
	Graph     Term
}

// Triple drops the graph name.
func (q Quad) Triple() Triple {
	return Triple{Subject: q.Subject, Predicate: q.Predicate, Object: q.Object}
}

// String renders the quad as an N-Quads statement.
func (q Quad) String() string {
	s := q.Subject.String() + " " + q.Predicate.String() + " " + q.Object.String()
	if !q.Graph.IsZero() {
		s += " " + q.Graph.String()
	}
	return s + " ."
}

// TriplesToQuads lazily scopes every triple of seq to graph.
func TriplesToQuads(seq iter.Seq[Triple], graph Term) iter.Seq[Quad] {
	return func(yield func(Quad) bool) {
		for t := range seq {
			if !yield(t.AsQuad(graph)) {
				return
			}
		}
	}
}
