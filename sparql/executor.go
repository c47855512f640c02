// Package sparql executes the subset of SPARQL 1.1 queries and updates that
// octiron's pipeline, renderers and user rules rely on.
package sparql

import (
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/c360studio/octiron/rdf"
)

// Dataset is the graph an Executor reads and writes. Reads see the union of
// all sub-graphs.
type Dataset interface {
	MatchTriples(subject, predicate, object rdf.Term) []rdf.Triple
	Contains(t rdf.Triple) bool
	AddN(quads []rdf.Quad) int
	RemoveTriple(t rdf.Triple) int
	Namespaces() map[string]string
}

// Solution maps variable names (without the leading '?') to terms.
type Solution map[string]rdf.Term

// UpdateStats counts the effect of an update.
type UpdateStats struct {
	Inserted int
	Deleted  int
}

// Executor runs queries and updates against a Dataset.
type Executor struct {
	data Dataset
}

// NewExecutor creates an executor over data.
func NewExecutor(data Dataset) *Executor {
	return &Executor{data: data}
}

// Query executes a SELECT, ASK or CONSTRUCT query. Bindings pre-bind
// variables; values may be rdf.Term, string (taken as an IRI), integers,
// floats or booleans.
func (e *Executor) Query(text string, bindings map[string]any) (*Result, error) {
	q, err := parseQuery(text, e.data.Namespaces())
	if err != nil {
		return nil, err
	}
	initial, err := bindingSolution(bindings)
	if err != nil {
		return nil, err
	}

	solutions := e.evalGroup(q.where, []Solution{initial})

	switch q.form {
	case FormAsk:
		return &Result{Form: FormAsk, Boolean: len(solutions) > 0}, nil
	case FormConstruct:
		solutions = sliceSolutions(orderSolutions(solutions, q.orderBy), q.offset, q.limit)
		return &Result{Form: FormConstruct, Graph: instantiate(q.template, solutions, &blankMinter{prefix: "c"})}, nil
	}

	vars := q.vars
	if vars == nil {
		vars = patternVars(q.where)
	}
	solutions = orderSolutions(solutions, q.orderBy)
	rows := make([]Solution, 0, len(solutions))
	seen := make(map[string]bool)
	for _, sol := range solutions {
		row := make(Solution, len(vars))
		for _, v := range vars {
			if t, ok := sol[v]; ok {
				row[v] = t
			}
		}
		if q.distinct {
			key := row.key(vars)
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		rows = append(rows, row)
	}
	return &Result{Form: FormSelect, Vars: vars, Rows: sliceSolutions(rows, q.offset, q.limit)}, nil
}

// Update executes an update request. Inserted triples go into graph; a
// triple already present in any sub-graph is not inserted again. Deleted
// triples are removed from every sub-graph.
func (e *Executor) Update(text string, graph rdf.Term) (UpdateStats, error) {
	ops, err := parseUpdate(text, e.data.Namespaces())
	if err != nil {
		return UpdateStats{}, err
	}

	var stats UpdateStats
	for i, op := range ops {
		var deletes, inserts []rdf.Triple
		if op.where == nil {
			deletes = instantiate(op.deletes, []Solution{{}}, nil)
			inserts = instantiate(op.inserts, []Solution{{}}, nil)
		} else {
			solutions := e.evalGroup(op.where, []Solution{{}})
			deletes = instantiate(op.deletes, solutions, nil)
			inserts = instantiate(op.inserts, solutions, &blankMinter{prefix: "u" + strconv.Itoa(i)})
		}

		for _, t := range deletes {
			stats.Deleted += e.data.RemoveTriple(t)
		}
		var quads []rdf.Quad
		for _, t := range inserts {
			if !e.data.Contains(t) {
				quads = append(quads, t.AsQuad(graph))
			}
		}
		stats.Inserted += e.data.AddN(quads)
	}
	return stats, nil
}

func bindingSolution(bindings map[string]any) (Solution, error) {
	sol := make(Solution, len(bindings))
	for name, value := range bindings {
		if len(name) > 0 && (name[0] == '?' || name[0] == '$') {
			name = name[1:]
		}
		switch v := value.(type) {
		case rdf.Term:
			sol[name] = v
		case string:
			sol[name] = rdf.IRI(v)
		case int:
			sol[name] = rdf.Integer(int64(v))
		case int64:
			sol[name] = rdf.Integer(v)
		case float64:
			sol[name] = rdf.Double(v)
		case bool:
			sol[name] = rdf.Boolean(v)
		default:
			return nil, fmt.Errorf("bind %s: unsupported value type %T", name, value)
		}
	}
	return sol, nil
}

// evalGroup joins the group's triple patterns into every input solution,
// extends the result with each OPTIONAL block and applies the filters.
func (e *Executor) evalGroup(g *group, input []Solution) []Solution {
	solutions := input
	remaining := slices.Clone(g.patterns)
	for len(remaining) > 0 && len(solutions) > 0 {
		i := mostSelective(remaining, solutions[0])
		tp := remaining[i]
		remaining = slices.Delete(remaining, i, i+1)

		var next []Solution
		for _, sol := range solutions {
			next = append(next, e.matchPattern(tp, sol)...)
		}
		solutions = next
	}
	if len(remaining) > 0 {
		return nil
	}

	for _, opt := range g.optionals {
		var next []Solution
		for _, sol := range solutions {
			extended := e.evalGroup(opt, []Solution{sol})
			if len(extended) == 0 {
				next = append(next, sol)
				continue
			}
			next = append(next, extended...)
		}
		solutions = next
	}

	if len(g.filters) == 0 {
		return solutions
	}
	filtered := solutions[:0:0]
	for _, sol := range solutions {
		if passes(g.filters, sol) {
			filtered = append(filtered, sol)
		}
	}
	return filtered
}

func passes(filters []expr, sol Solution) bool {
	for _, f := range filters {
		ok, err := evalBool(f, sol)
		if err != nil || !ok {
			return false
		}
	}
	return true
}

// mostSelective picks the pattern with the most positions bound under sol.
func mostSelective(patterns []triplePattern, sol Solution) int {
	best, bestScore := 0, -1
	for i, tp := range patterns {
		score := 0
		for _, n := range []node{tp.s, tp.p, tp.o} {
			if !n.isVar() {
				score++
			} else if _, ok := sol[n.variable]; ok {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

func (e *Executor) matchPattern(tp triplePattern, sol Solution) []Solution {
	s, p, o := resolve(tp.s, sol), resolve(tp.p, sol), resolve(tp.o, sol)
	if s.IsLiteral() || (!p.IsZero() && !p.IsIRI()) {
		return nil
	}

	var out []Solution
	for _, t := range e.data.MatchTriples(s, p, o) {
		ext := maps.Clone(sol)
		if ext == nil {
			ext = Solution{}
		}
		if bind(ext, tp.s, t.Subject) && bind(ext, tp.p, t.Predicate) && bind(ext, tp.o, t.Object) {
			out = append(out, ext)
		}
	}
	return out
}

// resolve returns the term a pattern position stands for, or the zero
// wildcard for an unbound variable. Blank nodes in patterns act as
// variables.
func resolve(n node, sol Solution) rdf.Term {
	name, ok := patternVar(n)
	if !ok {
		return n.term
	}
	return sol[name]
}

func patternVar(n node) (string, bool) {
	if n.isVar() {
		return n.variable, true
	}
	if n.term.IsBlank() {
		return "_:" + n.term.Value, true
	}
	return "", false
}

// bind records value for a variable position, rejecting inconsistent
// repeats such as ?x ?p ?x.
func bind(sol Solution, n node, value rdf.Term) bool {
	name, ok := patternVar(n)
	if !ok {
		return true
	}
	if prev, bound := sol[name]; bound {
		return prev == value
	}
	sol[name] = value
	return true
}

type blankMinter struct {
	prefix string
	n      int
}

// instantiate fills a template with every solution, skipping triples with
// unbound or ill-typed positions. Template blank nodes are minted afresh per
// solution when minter is set.
func instantiate(template []triplePattern, solutions []Solution, minter *blankMinter) []rdf.Triple {
	var out []rdf.Triple
	seen := make(map[rdf.Triple]bool)
	for _, sol := range solutions {
		fresh := make(map[string]rdf.Term)
		term := func(n node) rdf.Term {
			if n.isVar() {
				return sol[n.variable]
			}
			if n.term.IsBlank() && minter != nil {
				if t, ok := fresh[n.term.Value]; ok {
					return t
				}
				minter.n++
				t := rdf.Blank(minter.prefix + "b" + strconv.Itoa(minter.n))
				fresh[n.term.Value] = t
				return t
			}
			return n.term
		}
		for _, tp := range template {
			t := rdf.NewTriple(term(tp.s), term(tp.p), term(tp.o))
			if !t.Subject.IsResource() || !t.Predicate.IsIRI() || t.Object.IsZero() {
				continue
			}
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}

// patternVars lists the variables of a group in order of first appearance.
func patternVars(g *group) []string {
	var vars []string
	seen := make(map[string]bool)
	var walk func(*group)
	walk = func(g *group) {
		for _, tp := range g.patterns {
			for _, n := range []node{tp.s, tp.p, tp.o} {
				if n.isVar() && !seen[n.variable] {
					seen[n.variable] = true
					vars = append(vars, n.variable)
				}
			}
		}
		for _, opt := range g.optionals {
			walk(opt)
		}
	}
	walk(g)
	return vars
}

func orderSolutions(solutions []Solution, keys []orderKey) []Solution {
	if len(keys) == 0 {
		return solutions
	}
	slices.SortStableFunc(solutions, func(a, b Solution) int {
		for _, k := range keys {
			va, _ := k.expr.eval(a)
			vb, _ := k.expr.eval(b)
			c := orderTerms(va, vb)
			if k.desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
	return solutions
}

func sliceSolutions(solutions []Solution, offset, limit int) []Solution {
	if offset >= len(solutions) {
		return solutions[:0]
	}
	solutions = solutions[offset:]
	if limit >= 0 && limit < len(solutions) {
		solutions = solutions[:limit]
	}
	return solutions
}

func (s Solution) key(vars []string) string {
	var b []byte
	for _, v := range vars {
		b = append(b, s[v].String()...)
		b = append(b, 0)
	}
	return string(b)
}
