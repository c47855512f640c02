package inference

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	"github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"

	"github.com/c360studio/octiron/graph"
	"github.com/c360studio/octiron/rdf"
	"github.com/c360studio/octiron/vocabulary/octa"
)

// DefaultDerivedFactLimit caps the facts a single closure run may derive.
const DefaultDerivedFactLimit = 500000

// closureRules is an RDFS and OWL RL subset in Mangle's Datalog dialect.
// Terms are carried as their N-Triples spelling. The resource guard keeps
// literals out of subject position.
var closureRules = fmt.Sprintf(`
Decl asserted(S, P, O).
Decl resource(X).

t(S, P, O) :- asserted(S, P, O).

t(X, %[1]s, C) :- t(P, %[2]s, C), t(X, P, _).
t(Y, %[1]s, C) :- t(P, %[3]s, C), t(_, P, Y), resource(Y).

t(P, %[4]s, R) :- t(P, %[4]s, Q), t(Q, %[4]s, R).
t(X, R, Y) :- t(P, %[4]s, R), t(X, P, Y).

t(C, %[5]s, C) :- t(C, %[5]s, _).
t(C, %[5]s, C) :- t(_, %[5]s, C), resource(C).
t(P, %[4]s, P) :- t(P, %[4]s, _).
t(P, %[4]s, P) :- t(_, %[4]s, P), resource(P).

t(A, %[5]s, C) :- t(A, %[5]s, B), t(B, %[5]s, C).
t(X, %[1]s, C) :- t(B, %[5]s, C), t(X, %[1]s, B).

t(A, %[5]s, B) :- t(A, %[6]s, B).
t(B, %[5]s, A) :- t(A, %[6]s, B).
t(A, %[4]s, B) :- t(A, %[7]s, B).
t(B, %[4]s, A) :- t(A, %[7]s, B).

t(Y, Q, X) :- t(P, %[8]s, Q), t(X, P, Y), resource(Y).
t(Y, P, X) :- t(P, %[8]s, Q), t(X, Q, Y), resource(Y).
t(Y, P, X) :- t(P, %[1]s, %[9]s), t(X, P, Y), resource(Y).
t(X, P, Z) :- t(P, %[1]s, %[10]s), t(X, P, Y), t(Y, P, Z).

t(Y, %[11]s, X) :- t(X, %[11]s, Y).
t(X, %[11]s, Z) :- t(X, %[11]s, Y), t(Y, %[11]s, Z).
`,
	quoted(octa.RDFType),
	quoted(octa.RDFSDomain),
	quoted(octa.RDFSRange),
	quoted(octa.RDFSSubProp),
	quoted(octa.RDFSSubClass),
	quoted(octa.OWLEquivalentClass),
	quoted(octa.OWLEquivalentProperty),
	quoted(octa.OWLInverseOf),
	quoted(octa.OWLSymmetricProperty),
	quoted(octa.OWLTransitiveProperty),
	quoted(octa.OWLSameAs),
)

func quoted(iri string) string {
	return fmt.Sprintf("%q", rdf.IRI(iri).String())
}

var tripleSym = ast.PredicateSym{Symbol: "t", Arity: 3}

// ClosureReasoner computes the RDFS / OWL RL closure of the graph with the
// Mangle Datalog engine.
type ClosureReasoner struct {
	// DerivedFactLimit caps derived facts per run; zero selects
	// DefaultDerivedFactLimit.
	DerivedFactLimit int

	// Logger receives evaluation statistics; defaults to slog.Default().
	Logger *slog.Logger

	once    sync.Once
	program *analysis.ProgramInfo
	err     error
}

func (r *ClosureReasoner) compile() (*analysis.ProgramInfo, error) {
	r.once.Do(func() {
		unit, err := parse.Unit(strings.NewReader(closureRules))
		if err != nil {
			r.err = fmt.Errorf("parse closure rules: %w", err)
			return
		}
		r.program, err = analysis.AnalyzeOneUnit(unit, nil)
		if err != nil {
			r.err = fmt.Errorf("analyze closure rules: %w", err)
		}
	})
	return r.program, r.err
}

// Expand adds every fact entailed by the graph and missing from it to the
// inference graph. It returns the number of facts added.
func (r *ClosureReasoner) Expand(ctx context.Context, store *graph.Store) (int, error) {
	program, err := r.compile()
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit := r.DerivedFactLimit
	if limit <= 0 {
		limit = DefaultDerivedFactLimit
	}

	var facts factstore.FactStore = factstore.NewSimpleInMemoryStore()
	for _, t := range store.Triples() {
		facts.Add(ast.NewAtom("asserted", ast.String(t.Subject.String()), ast.String(t.Predicate.String()), ast.String(t.Object.String())))
		facts.Add(ast.NewAtom("resource", ast.String(t.Subject.String())))
		if t.Object.IsResource() {
			facts.Add(ast.NewAtom("resource", ast.String(t.Object.String())))
		}
	}

	stats, err := engine.EvalProgramWithStats(program, facts, engine.WithCreatedFactLimit(limit))
	if err != nil {
		return 0, fmt.Errorf("evaluate closure: %w", err)
	}
	var elapsed time.Duration
	for _, d := range stats.Duration {
		elapsed += d
	}

	inference := rdf.IRI(octa.InferenceGraph)
	var derived []rdf.Quad
	var decodeErr error
	err = facts.GetFacts(ast.NewQuery(tripleSym), func(a ast.Atom) error {
		t, err := decodeTriple(a)
		if err != nil {
			decodeErr = err
			return nil
		}
		if !t.Subject.IsResource() || !t.Predicate.IsIRI() || store.Contains(t) {
			return nil
		}
		derived = append(derived, t.AsQuad(inference))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("read closure: %w", err)
	}
	if decodeErr != nil {
		logger.Warn("Skipped undecodable derived fact", "error", decodeErr)
	}

	added := store.AddN(derived)
	logger.Debug("Closure computed",
		"strata", len(stats.Strata),
		"eval_time", elapsed,
		"derived", added)
	return added, nil
}

func decodeTriple(a ast.Atom) (rdf.Triple, error) {
	var terms [3]rdf.Term
	for i, arg := range a.Args {
		c, ok := arg.(ast.Constant)
		if !ok {
			return rdf.Triple{}, fmt.Errorf("unexpected argument %v", arg)
		}
		term, err := rdf.ParseTerm(c.Symbol)
		if err != nil {
			return rdf.Triple{}, err
		}
		terms[i] = term
	}
	return rdf.NewTriple(terms[0], terms[1], terms[2]), nil
}
