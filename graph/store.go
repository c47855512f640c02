// Package graph provides the in-memory quad store behind the octiron graph.
//
// Every fact lives in exactly one named graph. Loaders' facts are scoped to
// the IRI of the file they came from, so re-ingesting a file is a matter of
// ClearGraph followed by AddN. The conjunctive view (Triples, MatchTriples,
// Contains) ignores graph names and is what queries and inference see.
package graph

import (
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/c360studio/octiron/rdf"
)

type quadSet map[rdf.Quad]struct{}

// Store is a mutable quad store guarded by a single-writer lock.
type Store struct {
	mu sync.RWMutex

	quads       quadSet
	bySubject   map[rdf.Term]quadSet
	byPredicate map[rdf.Term]quadSet
	byObject    map[rdf.Term]quadSet
	byGraph     map[rdf.Term]quadSet

	// triples counts in how many graphs each triple occurs.
	triples map[rdf.Triple]int

	namespaces map[string]string
}

// NewStore creates an empty store with the given prefix bindings.
func NewStore(namespaces map[string]string) *Store {
	s := &Store{
		quads:       make(quadSet),
		bySubject:   make(map[rdf.Term]quadSet),
		byPredicate: make(map[rdf.Term]quadSet),
		byObject:    make(map[rdf.Term]quadSet),
		byGraph:     make(map[rdf.Term]quadSet),
		triples:     make(map[rdf.Triple]int),
		namespaces:  make(map[string]string),
	}
	maps.Copy(s.namespaces, namespaces)
	return s
}

// Bind registers a namespace prefix.
func (s *Store) Bind(prefix, iri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.namespaces[prefix] = iri
}

// Namespaces returns a copy of the prefix bindings.
func (s *Store) Namespaces() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.namespaces)
}

// Add inserts a quad and reports whether it was new.
func (s *Store) Add(q rdf.Quad) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(q)
}

// AddN inserts all quads under one lock acquisition, so readers observe
// either none or all of them. It returns the number of new quads.
func (s *Store) AddN(quads []rdf.Quad) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, q := range quads {
		if s.add(q) {
			added++
		}
	}
	return added
}

// ReplaceGraph atomically drops every quad of graph and inserts quads.
func (s *Store) ReplaceGraph(graph rdf.Term, quads []rdf.Quad) (removed, added int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed = s.clearGraph(graph)
	for _, q := range quads {
		if s.add(q) {
			added++
		}
	}
	return removed, added
}

// Remove deletes a quad and reports whether it was present.
func (s *Store) Remove(q rdf.Quad) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(q)
}

// RemoveTriple deletes the triple from every graph it occurs in.
func (s *Store) RemoveTriple(t rdf.Triple) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, q := range s.match(rdf.Quad{Subject: t.Subject, Predicate: t.Predicate, Object: t.Object}) {
		if s.remove(q) {
			removed++
		}
	}
	return removed
}

// ClearGraph removes every quad of the named graph and returns how many
// were removed. Other graphs are untouched.
func (s *Store) ClearGraph(graph rdf.Term) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearGraph(graph)
}

// Match returns all quads matching the pattern; zero terms are wildcards.
func (s *Store) Match(pattern rdf.Quad) []rdf.Quad {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.match(pattern)
}

// MatchTriples returns the distinct triples matching the pattern across all
// graphs.
func (s *Store) MatchTriples(subject, predicate, object rdf.Term) []rdf.Triple {
	s.mu.RLock()
	defer s.mu.RUnlock()

	quads := s.match(rdf.Quad{Subject: subject, Predicate: predicate, Object: object})
	seen := make(map[rdf.Triple]struct{}, len(quads))
	out := make([]rdf.Triple, 0, len(quads))
	for _, q := range quads {
		t := q.Triple()
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Contains reports whether the triple occurs in any graph.
func (s *Store) Contains(t rdf.Triple) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.triples[t] > 0
}

// ContainsQuad reports whether the quad is stored.
func (s *Store) ContainsQuad(q rdf.Quad) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.quads[q]
	return ok
}

// Triples returns the conjunctive view: every distinct triple in any graph.
func (s *Store) Triples() []rdf.Triple {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Collect(maps.Keys(s.triples))
}

// Quads returns every stored quad sorted by graph, subject, predicate and
// object.
func (s *Store) Quads() []rdf.Quad {
	s.mu.RLock()
	quads := slices.Collect(maps.Keys(s.quads))
	s.mu.RUnlock()

	SortQuads(quads)
	return quads
}

// Len returns the number of quads.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.quads)
}

// TripleCount returns the number of distinct triples.
func (s *Store) TripleCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.triples)
}

// GraphLen returns the number of quads in the named graph.
func (s *Store) GraphLen(graph rdf.Term) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byGraph[graph])
}

// Graphs returns the names of all non-empty graphs, sorted.
func (s *Store) Graphs() []rdf.Term {
	s.mu.RLock()
	graphs := slices.Collect(maps.Keys(s.byGraph))
	s.mu.RUnlock()

	slices.SortFunc(graphs, compareTerms)
	return graphs
}

// SortQuads orders quads by graph, subject, predicate and object.
func SortQuads(quads []rdf.Quad) {
	slices.SortFunc(quads, func(a, b rdf.Quad) int {
		if c := compareTerms(a.Graph, b.Graph); c != 0 {
			return c
		}
		if c := compareTerms(a.Subject, b.Subject); c != 0 {
			return c
		}
		if c := compareTerms(a.Predicate, b.Predicate); c != 0 {
			return c
		}
		return compareTerms(a.Object, b.Object)
	})
}

func compareTerms(a, b rdf.Term) int {
	return strings.Compare(a.String(), b.String())
}

func (s *Store) add(q rdf.Quad) bool {
	if _, ok := s.quads[q]; ok {
		return false
	}
	s.quads[q] = struct{}{}
	index(s.bySubject, q.Subject, q)
	index(s.byPredicate, q.Predicate, q)
	index(s.byObject, q.Object, q)
	index(s.byGraph, q.Graph, q)
	s.triples[q.Triple()]++
	return true
}

func (s *Store) remove(q rdf.Quad) bool {
	if _, ok := s.quads[q]; !ok {
		return false
	}
	delete(s.quads, q)
	unindex(s.bySubject, q.Subject, q)
	unindex(s.byPredicate, q.Predicate, q)
	unindex(s.byObject, q.Object, q)
	unindex(s.byGraph, q.Graph, q)

	t := q.Triple()
	if s.triples[t] <= 1 {
		delete(s.triples, t)
	} else {
		s.triples[t]--
	}
	return true
}

func (s *Store) clearGraph(graph rdf.Term) int {
	members := slices.Collect(maps.Keys(s.byGraph[graph]))
	for _, q := range members {
		s.remove(q)
	}
	return len(members)
}

func (s *Store) match(pattern rdf.Quad) []rdf.Quad {
	candidates := s.quads
	narrow := func(idx map[rdf.Term]quadSet, term rdf.Term) {
		if term.IsZero() {
			return
		}
		if set := idx[term]; len(set) < len(candidates) {
			candidates = set
		}
	}
	narrow(s.bySubject, pattern.Subject)
	narrow(s.byPredicate, pattern.Predicate)
	narrow(s.byObject, pattern.Object)
	narrow(s.byGraph, pattern.Graph)

	out := make([]rdf.Quad, 0, len(candidates))
	for q := range candidates {
		if matches(pattern.Subject, q.Subject) &&
			matches(pattern.Predicate, q.Predicate) &&
			matches(pattern.Object, q.Object) &&
			matches(pattern.Graph, q.Graph) {
			out = append(out, q)
		}
	}
	return out
}

func matches(pattern, term rdf.Term) bool {
	return pattern.IsZero() || pattern == term
}

func index(idx map[rdf.Term]quadSet, key rdf.Term, q rdf.Quad) {
	set, ok := idx[key]
	if !ok {
		set = make(quadSet)
		idx[key] = set
	}
	set[q] = struct{}{}
}

func unindex(idx map[rdf.Term]quadSet, key rdf.Term, q rdf.Quad) {
	set := idx[key]
	delete(set, q)
	if len(set) == 0 {
		delete(idx, key)
	}
}
