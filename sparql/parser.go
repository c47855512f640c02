package sparql

import (
	"fmt"
	"strings"

	"github.com/c360studio/octiron/rdf"
	"github.com/c360studio/octiron/vocabulary/octa"
)

type parser struct {
	tokens   []token
	pos      int
	prefixes map[string]string
	base     string
}

func newParser(text string, namespaces map[string]string) (*parser, error) {
	tokens, err := lex(text)
	if err != nil {
		return nil, err
	}
	prefixes := make(map[string]string, len(namespaces))
	for k, v := range namespaces {
		prefixes[k] = v
	}
	return &parser{tokens: tokens, prefixes: prefixes}, nil
}

// parseQuery parses a SELECT, ASK or CONSTRUCT query.
func parseQuery(text string, namespaces map[string]string) (*query, error) {
	p, err := newParser(text, namespaces)
	if err != nil {
		return nil, err
	}
	if err := p.prologue(); err != nil {
		return nil, err
	}

	q := &query{limit: -1}
	switch {
	case p.acceptWord("SELECT"):
		q.form = FormSelect
		if err := p.selectClause(q); err != nil {
			return nil, err
		}
	case p.acceptWord("ASK"):
		q.form = FormAsk
	case p.acceptWord("CONSTRUCT"):
		q.form = FormConstruct
		if q.template, err = p.template(); err != nil {
			return nil, err
		}
	default:
		return nil, p.errorf("expected SELECT, ASK or CONSTRUCT, found %s", p.peek())
	}

	p.acceptWord("WHERE")
	if q.where, err = p.groupPattern(); err != nil {
		return nil, err
	}
	if err := p.solutionModifiers(q); err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, p.errorf("unexpected %s after query", p.peek())
	}
	return q, nil
}

// parseUpdate parses a sequence of update operations separated by ';'.
func parseUpdate(text string, namespaces map[string]string) ([]updateOp, error) {
	p, err := newParser(text, namespaces)
	if err != nil {
		return nil, err
	}

	var ops []updateOp
	for {
		if err := p.prologue(); err != nil {
			return nil, err
		}
		if p.peek().kind == tokEOF {
			break
		}
		op, err := p.updateOp()
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
		if !p.acceptPunct(";") {
			break
		}
	}
	if p.peek().kind != tokEOF {
		return nil, p.errorf("unexpected %s after update", p.peek())
	}
	if len(ops) == 0 {
		return nil, p.errorf("empty update")
	}
	return ops, nil
}

func (p *parser) updateOp() (updateOp, error) {
	var op updateOp
	var err error

	switch {
	case p.acceptWord("INSERT"):
		if p.acceptWord("DATA") {
			op.inserts, err = p.template()
			if err == nil {
				err = p.checkGround(op.inserts)
			}
			return op, err
		}
		if op.inserts, err = p.template(); err != nil {
			return op, err
		}
	case p.acceptWord("DELETE"):
		switch {
		case p.acceptWord("DATA"):
			op.deletes, err = p.template()
			if err == nil {
				err = p.checkGround(op.deletes)
			}
			return op, err
		case p.acceptWord("WHERE"):
			patterns, err := p.template()
			if err != nil {
				return op, err
			}
			op.deletes = patterns
			op.where = &group{patterns: patterns}
			return op, nil
		}
		if op.deletes, err = p.template(); err != nil {
			return op, err
		}
		if p.acceptWord("INSERT") {
			if op.inserts, err = p.template(); err != nil {
				return op, err
			}
		}
	default:
		return op, p.errorf("expected INSERT or DELETE, found %s", p.peek())
	}

	if !p.acceptWord("WHERE") {
		return op, p.errorf("expected WHERE, found %s", p.peek())
	}
	op.where, err = p.groupPattern()
	return op, err
}

func (p *parser) checkGround(patterns []triplePattern) error {
	for _, tp := range patterns {
		if tp.s.isVar() || tp.p.isVar() || tp.o.isVar() {
			return p.errorf("variables are not allowed in DATA blocks")
		}
	}
	return nil
}

func (p *parser) prologue() error {
	for {
		switch {
		case p.acceptWord("PREFIX"):
			tok := p.next()
			if tok.kind != tokWord || !strings.HasSuffix(tok.text, ":") {
				return p.errorAt(tok, "expected prefix name, found %s", tok)
			}
			iri := p.next()
			if iri.kind != tokIRI {
				return p.errorAt(iri, "expected IRI, found %s", iri)
			}
			p.prefixes[strings.TrimSuffix(tok.text, ":")] = p.resolveIRI(iri.text)
		case p.acceptWord("BASE"):
			iri := p.next()
			if iri.kind != tokIRI {
				return p.errorAt(iri, "expected IRI, found %s", iri)
			}
			p.base = iri.text
		default:
			return nil
		}
	}
}

func (p *parser) selectClause(q *query) error {
	if p.acceptWord("DISTINCT") {
		q.distinct = true
	} else {
		p.acceptWord("REDUCED")
	}
	if p.acceptPunct("*") {
		return nil
	}
	for p.peek().kind == tokVar {
		q.vars = append(q.vars, p.next().text)
	}
	if len(q.vars) == 0 {
		return p.errorf("expected projection, found %s", p.peek())
	}
	return nil
}

func (p *parser) solutionModifiers(q *query) error {
	if p.acceptWord("ORDER") {
		if !p.acceptWord("BY") {
			return p.errorf("expected BY, found %s", p.peek())
		}
		for {
			var key orderKey
			switch {
			case p.acceptWord("ASC"), p.acceptWord("DESC"):
				key.desc = strings.EqualFold(p.tokens[p.pos-1].text, "DESC")
				if !p.acceptPunct("(") {
					return p.errorf("expected (, found %s", p.peek())
				}
				e, err := p.expression()
				if err != nil {
					return err
				}
				if !p.acceptPunct(")") {
					return p.errorf("expected ), found %s", p.peek())
				}
				key.expr = e
			case p.peek().kind == tokVar:
				key.expr = exprVar{name: p.next().text}
			default:
				if len(q.orderBy) == 0 {
					return p.errorf("expected order condition, found %s", p.peek())
				}
			}
			if key.expr == nil {
				break
			}
			q.orderBy = append(q.orderBy, key)
		}
	}

	for {
		switch {
		case p.acceptWord("LIMIT"):
			n, err := p.integer()
			if err != nil {
				return err
			}
			q.limit = n
		case p.acceptWord("OFFSET"):
			n, err := p.integer()
			if err != nil {
				return err
			}
			q.offset = n
		default:
			return nil
		}
	}
}

func (p *parser) integer() (int, error) {
	tok := p.next()
	var n int
	if tok.kind != tokNumber {
		return 0, p.errorAt(tok, "expected integer, found %s", tok)
	}
	if _, err := fmt.Sscanf(tok.text, "%d", &n); err != nil || n < 0 {
		return 0, p.errorAt(tok, "invalid integer %s", tok.text)
	}
	return n, nil
}

// template parses a brace-enclosed block of triple patterns.
func (p *parser) template() ([]triplePattern, error) {
	if !p.acceptPunct("{") {
		return nil, p.errorf("expected {, found %s", p.peek())
	}
	var patterns []triplePattern
	for !p.acceptPunct("}") {
		if p.acceptPunct(".") {
			continue
		}
		tps, err := p.triplesSameSubject()
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, tps...)
	}
	return patterns, nil
}

func (p *parser) groupPattern() (*group, error) {
	if !p.acceptPunct("{") {
		return nil, p.errorf("expected {, found %s", p.peek())
	}
	g := &group{}
	for !p.acceptPunct("}") {
		switch {
		case p.acceptPunct("."):
		case p.acceptWord("OPTIONAL"):
			opt, err := p.groupPattern()
			if err != nil {
				return nil, err
			}
			g.optionals = append(g.optionals, opt)
		case p.acceptWord("FILTER"):
			e, err := p.constraint()
			if err != nil {
				return nil, err
			}
			g.filters = append(g.filters, e)
		case p.peekPunct("{"):
			inner, err := p.groupPattern()
			if err != nil {
				return nil, err
			}
			g.patterns = append(g.patterns, inner.patterns...)
			g.optionals = append(g.optionals, inner.optionals...)
			g.filters = append(g.filters, inner.filters...)
		case p.peek().kind == tokEOF:
			return nil, p.errorf("unterminated group pattern")
		default:
			tps, err := p.triplesSameSubject()
			if err != nil {
				return nil, err
			}
			g.patterns = append(g.patterns, tps...)
		}
	}
	return g, nil
}

func (p *parser) triplesSameSubject() ([]triplePattern, error) {
	subject, err := p.termOrVar()
	if err != nil {
		return nil, err
	}
	if !subject.isVar() && subject.term.IsLiteral() {
		return nil, p.errorf("literal %s cannot be a subject", subject.term)
	}

	var patterns []triplePattern
	for {
		predicate, err := p.verb()
		if err != nil {
			return nil, err
		}
		for {
			object, err := p.termOrVar()
			if err != nil {
				return nil, err
			}
			patterns = append(patterns, triplePattern{s: subject, p: predicate, o: object})
			if !p.acceptPunct(",") {
				break
			}
		}
		if !p.acceptPunct(";") {
			return patterns, nil
		}
		// A trailing ';' before '.' or '}' is allowed.
		if p.peekPunct(".") || p.peekPunct("}") {
			return patterns, nil
		}
	}
}

func (p *parser) verb() (node, error) {
	if tok := p.peek(); tok.kind == tokWord && tok.text == "a" {
		p.next()
		return node{term: rdf.IRI(octa.RDFType)}, nil
	}
	n, err := p.termOrVar()
	if err != nil {
		return n, err
	}
	if !n.isVar() && !n.term.IsIRI() {
		return n, p.errorf("predicate must be an IRI, found %s", n.term)
	}
	return n, nil
}

func (p *parser) termOrVar() (node, error) {
	tok := p.peek()
	if tok.kind == tokVar {
		p.next()
		return node{variable: tok.text}, nil
	}
	if tok.kind == tokWord && strings.HasPrefix(tok.text, "_:") {
		p.next()
		return node{term: rdf.Blank(tok.text[2:])}, nil
	}
	term, err := p.term()
	return node{term: term}, err
}

// term parses an IRI, prefixed name or literal.
func (p *parser) term() (rdf.Term, error) {
	tok := p.next()
	switch tok.kind {
	case tokIRI:
		return rdf.IRI(p.resolveIRI(tok.text)), nil
	case tokString:
		switch {
		case p.peek().kind == tokLang:
			return rdf.LangString(tok.text, p.next().text), nil
		case p.acceptPunct("^^"):
			dt := p.next()
			iri, err := p.iriOf(dt)
			if err != nil {
				return rdf.Term{}, err
			}
			return rdf.Literal(tok.text, iri), nil
		}
		return rdf.String(tok.text), nil
	case tokNumber:
		return numberLiteral(tok.text), nil
	case tokWord:
		switch {
		case strings.EqualFold(tok.text, "true"):
			return rdf.Boolean(true), nil
		case strings.EqualFold(tok.text, "false"):
			return rdf.Boolean(false), nil
		}
		iri, err := p.iriOf(tok)
		return rdf.IRI(iri), err
	}
	return rdf.Term{}, p.errorAt(tok, "expected term, found %s", tok)
}

func (p *parser) iriOf(tok token) (string, error) {
	switch tok.kind {
	case tokIRI:
		return p.resolveIRI(tok.text), nil
	case tokWord:
		prefix, local, ok := strings.Cut(tok.text, ":")
		if !ok {
			return "", p.errorAt(tok, "unexpected %s", tok)
		}
		ns, known := p.prefixes[prefix]
		if !known {
			return "", p.errorAt(tok, "unknown prefix %q", prefix)
		}
		return ns + local, nil
	}
	return "", p.errorAt(tok, "expected IRI, found %s", tok)
}

func (p *parser) resolveIRI(iri string) string {
	if p.base == "" || strings.Contains(iri, ":") {
		return iri
	}
	return p.base + iri
}

func numberLiteral(text string) rdf.Term {
	switch {
	case strings.ContainsAny(text, "eE"):
		return rdf.Literal(text, octa.XSDDouble)
	case strings.Contains(text, "."):
		return rdf.Literal(text, octa.XSDDecimal)
	default:
		return rdf.Literal(strings.TrimPrefix(text, "+"), octa.XSDInteger)
	}
}

// constraint parses the argument of FILTER: a bracketted expression or a
// function call.
func (p *parser) constraint() (expr, error) {
	if p.acceptPunct("(") {
		e, err := p.expression()
		if err != nil {
			return nil, err
		}
		if !p.acceptPunct(")") {
			return nil, p.errorf("expected ), found %s", p.peek())
		}
		return e, nil
	}
	if tok := p.peek(); tok.kind == tokWord {
		return p.primary()
	}
	return nil, p.errorf("expected filter constraint, found %s", p.peek())
}

func (p *parser) expression() (expr, error) {
	left, err := p.conjunction()
	if err != nil {
		return nil, err
	}
	for p.acceptPunct("||") {
		right, err := p.conjunction()
		if err != nil {
			return nil, err
		}
		left = exprBinary{op: "||", left: left, right: right}
	}
	return left, nil
}

func (p *parser) conjunction() (expr, error) {
	left, err := p.relational()
	if err != nil {
		return nil, err
	}
	for p.acceptPunct("&&") {
		right, err := p.relational()
		if err != nil {
			return nil, err
		}
		left = exprBinary{op: "&&", left: left, right: right}
	}
	return left, nil
}

func (p *parser) relational() (expr, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for _, op := range []string{"=", "!=", "<", ">", "<=", ">="} {
		if p.acceptPunct(op) {
			right, err := p.unary()
			if err != nil {
				return nil, err
			}
			return exprBinary{op: op, left: left, right: right}, nil
		}
	}
	return left, nil
}

func (p *parser) unary() (expr, error) {
	if p.acceptPunct("!") {
		inner, err := p.unary()
		if err != nil {
			return nil, err
		}
		return exprNot{inner: inner}, nil
	}
	return p.primary()
}

func (p *parser) primary() (expr, error) {
	tok := p.peek()
	switch {
	case p.acceptPunct("("):
		e, err := p.expression()
		if err != nil {
			return nil, err
		}
		if !p.acceptPunct(")") {
			return nil, p.errorf("expected ), found %s", p.peek())
		}
		return e, nil
	case tok.kind == tokVar:
		p.next()
		return exprVar{name: tok.text}, nil
	case tok.kind == tokWord && !strings.Contains(tok.text, ":") && p.peekAt(1).kind == tokPunct && p.peekAt(1).text == "(":
		return p.call()
	}
	term, err := p.term()
	if err != nil {
		return nil, err
	}
	return exprConst{term: term}, nil
}

func (p *parser) call() (expr, error) {
	tok := p.next()
	name := strings.ToLower(tok.text)
	if _, ok := functions[name]; !ok && name != "bound" {
		return nil, p.errorAt(tok, "unknown function %s", tok.text)
	}
	p.next() // (

	c := exprCall{name: name}
	if !p.acceptPunct(")") {
		for {
			arg, err := p.expression()
			if err != nil {
				return nil, err
			}
			c.args = append(c.args, arg)
			if p.acceptPunct(")") {
				break
			}
			if !p.acceptPunct(",") {
				return nil, p.errorf("expected , or ), found %s", p.peek())
			}
		}
	}
	if name == "bound" {
		if len(c.args) != 1 {
			return nil, p.errorAt(tok, "BOUND takes one variable")
		}
		if _, ok := c.args[0].(exprVar); !ok {
			return nil, p.errorAt(tok, "BOUND takes one variable")
		}
	}
	return c, nil
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) peekAt(n int) token {
	if p.pos+n < len(p.tokens) {
		return p.tokens[p.pos+n]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) acceptWord(word string) bool {
	if tok := p.peek(); tok.kind == tokWord && strings.EqualFold(tok.text, word) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) peekPunct(punct string) bool {
	tok := p.peek()
	return tok.kind == tokPunct && tok.text == punct
}

func (p *parser) acceptPunct(punct string) bool {
	if p.peekPunct(punct) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) errorf(format string, args ...any) error {
	return p.errorAt(p.peek(), format, args...)
}

func (p *parser) errorAt(tok token, format string, args ...any) error {
	return &SyntaxError{Offset: tok.pos, Msg: fmt.Sprintf(format, args...)}
}
