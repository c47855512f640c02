package sparql

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/c360studio/octiron/rdf"
	"github.com/c360studio/octiron/vocabulary/octa"
)

// errType is raised for type errors; a filter that raises one rejects the
// solution.
var errType = errors.New("type error")

type expr interface {
	eval(sol Solution) (rdf.Term, error)
}

type exprVar struct{ name string }

type exprConst struct{ term rdf.Term }

type exprNot struct{ inner expr }

type exprBinary struct {
	op          string
	left, right expr
}

type exprCall struct {
	name string
	args []expr
}

func (e exprVar) eval(sol Solution) (rdf.Term, error) {
	if t, ok := sol[e.name]; ok {
		return t, nil
	}
	return rdf.Term{}, errType
}

func (e exprConst) eval(Solution) (rdf.Term, error) { return e.term, nil }

func (e exprNot) eval(sol Solution) (rdf.Term, error) {
	v, err := e.inner.eval(sol)
	if err != nil {
		return rdf.Term{}, err
	}
	b, err := effectiveBool(v)
	if err != nil {
		return rdf.Term{}, err
	}
	return rdf.Boolean(!b), nil
}

func (e exprBinary) eval(sol Solution) (rdf.Term, error) {
	switch e.op {
	case "&&", "||":
		return e.logical(sol)
	}

	l, err := e.left.eval(sol)
	if err != nil {
		return rdf.Term{}, err
	}
	r, err := e.right.eval(sol)
	if err != nil {
		return rdf.Term{}, err
	}

	switch e.op {
	case "=":
		eq, err := termsEqual(l, r)
		return rdf.Boolean(eq), err
	case "!=":
		eq, err := termsEqual(l, r)
		return rdf.Boolean(!eq), err
	}

	c, err := compareValues(l, r)
	if err != nil {
		return rdf.Term{}, err
	}
	switch e.op {
	case "<":
		return rdf.Boolean(c < 0), nil
	case ">":
		return rdf.Boolean(c > 0), nil
	case "<=":
		return rdf.Boolean(c <= 0), nil
	default:
		return rdf.Boolean(c >= 0), nil
	}
}

// logical implements the three-valued && and || of SPARQL: an error on one
// side is masked when the other side decides the result.
func (e exprBinary) logical(sol Solution) (rdf.Term, error) {
	lb, lerr := evalBool(e.left, sol)
	rb, rerr := evalBool(e.right, sol)
	if e.op == "&&" {
		switch {
		case lerr == nil && rerr == nil:
			return rdf.Boolean(lb && rb), nil
		case lerr == nil && !lb, rerr == nil && !rb:
			return rdf.Boolean(false), nil
		}
		return rdf.Term{}, errType
	}
	switch {
	case lerr == nil && rerr == nil:
		return rdf.Boolean(lb || rb), nil
	case lerr == nil && lb, rerr == nil && rb:
		return rdf.Boolean(true), nil
	}
	return rdf.Term{}, errType
}

type function func(args []rdf.Term) (rdf.Term, error)

var functions = map[string]function{
	"isiri":     termTest(rdf.Term.IsIRI),
	"isuri":     termTest(rdf.Term.IsIRI),
	"isblank":   termTest(rdf.Term.IsBlank),
	"isliteral": termTest(rdf.Term.IsLiteral),
	"str": unary(func(t rdf.Term) (rdf.Term, error) {
		if t.IsBlank() {
			return rdf.Term{}, errType
		}
		return rdf.String(t.Value), nil
	}),
	"lang": unary(func(t rdf.Term) (rdf.Term, error) {
		if !t.IsLiteral() {
			return rdf.Term{}, errType
		}
		return rdf.String(t.Lang), nil
	}),
	"lcase": unary(func(t rdf.Term) (rdf.Term, error) {
		if !t.IsLiteral() {
			return rdf.Term{}, errType
		}
		return rdf.String(strings.ToLower(t.Value)), nil
	}),
	"contains":  stringTest(strings.Contains),
	"strstarts": stringTest(strings.HasPrefix),
	"strends":   stringTest(strings.HasSuffix),
	"regex": func(args []rdf.Term) (rdf.Term, error) {
		if len(args) < 2 || len(args) > 3 || !args[0].IsLiteral() {
			return rdf.Term{}, errType
		}
		pattern := args[1].Value
		if len(args) == 3 && strings.Contains(args[2].Value, "i") {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return rdf.Term{}, errType
		}
		return rdf.Boolean(re.MatchString(args[0].Value)), nil
	},
}

func termTest(pred func(rdf.Term) bool) function {
	return unary(func(t rdf.Term) (rdf.Term, error) {
		return rdf.Boolean(pred(t)), nil
	})
}

func unary(fn func(rdf.Term) (rdf.Term, error)) function {
	return func(args []rdf.Term) (rdf.Term, error) {
		if len(args) != 1 {
			return rdf.Term{}, errType
		}
		return fn(args[0])
	}
}

func stringTest(pred func(s, sub string) bool) function {
	return func(args []rdf.Term) (rdf.Term, error) {
		if len(args) != 2 || !args[0].IsLiteral() || !args[1].IsLiteral() {
			return rdf.Term{}, errType
		}
		return rdf.Boolean(pred(args[0].Value, args[1].Value)), nil
	}
}

func (e exprCall) eval(sol Solution) (rdf.Term, error) {
	if e.name == "bound" {
		_, ok := sol[e.args[0].(exprVar).name]
		return rdf.Boolean(ok), nil
	}

	args := make([]rdf.Term, len(e.args))
	for i, a := range e.args {
		v, err := a.eval(sol)
		if err != nil {
			return rdf.Term{}, err
		}
		args[i] = v
	}
	return functions[e.name](args)
}

func evalBool(e expr, sol Solution) (bool, error) {
	v, err := e.eval(sol)
	if err != nil {
		return false, err
	}
	return effectiveBool(v)
}

// effectiveBool computes the effective boolean value of a term.
func effectiveBool(t rdf.Term) (bool, error) {
	if !t.IsLiteral() {
		return false, errType
	}
	switch t.Datatype {
	case octa.XSDBoolean:
		return t.Value == "true" || t.Value == "1", nil
	case octa.XSDString, octa.RDFLangStr, "":
		return t.Value != "", nil
	}
	if f, ok := numeric(t); ok {
		return f != 0, nil
	}
	return false, errType
}

func numeric(t rdf.Term) (float64, bool) {
	if !t.IsLiteral() {
		return 0, false
	}
	switch t.Datatype {
	case octa.XSDInteger, octa.XSDInt, octa.XSDLong, octa.XSDDecimal, octa.XSDDouble, octa.XSDFloat:
		f, err := strconv.ParseFloat(t.Value, 64)
		return f, err == nil
	}
	return 0, false
}

func termsEqual(a, b rdf.Term) (bool, error) {
	if fa, ok := numeric(a); ok {
		if fb, ok := numeric(b); ok {
			return fa == fb, nil
		}
	}
	return a == b, nil
}

// compareValues orders two literals of compatible types.
func compareValues(a, b rdf.Term) (int, error) {
	if fa, ok := numeric(a); ok {
		if fb, ok := numeric(b); ok {
			switch {
			case fa < fb:
				return -1, nil
			case fa > fb:
				return 1, nil
			}
			return 0, nil
		}
	}
	if a.IsLiteral() && b.IsLiteral() && a.Datatype == b.Datatype {
		return strings.Compare(a.Value, b.Value), nil
	}
	return 0, errType
}

// orderTerms is the total order used by ORDER BY: unbound values first, then
// blank nodes, IRIs and literals.
func orderTerms(a, b rdf.Term) int {
	if a.Kind != b.Kind {
		return kindRank(a.Kind) - kindRank(b.Kind)
	}
	if c, err := compareValues(a, b); err == nil {
		return c
	}
	return strings.Compare(a.String(), b.String())
}

func kindRank(k rdf.Kind) int {
	switch k {
	case rdf.KindBlank:
		return 1
	case rdf.KindIRI:
		return 2
	case rdf.KindLiteral:
		return 3
	}
	return 0
}
