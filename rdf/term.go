// Package rdf defines the immutable fact model shared by loaders, the graph
// store, the query executor and the reasoner.
package rdf

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/c360studio/octiron/vocabulary/octa"
)

// Kind discriminates the three kinds of RDF terms.
type Kind uint8

// Term kinds. The zero Kind is Any, used as a wildcard in patterns.
const (
	Any Kind = iota
	KindIRI
	KindBlank
	KindLiteral
)

// Term is an IRI, a blank node or a literal. Terms are comparable and safe
// to use as map keys.
type Term struct {
	Kind     Kind
	Value    string
	Datatype string
	Lang     string
}

// IRI returns an IRI term.
func IRI(value string) Term {
	return Term{Kind: KindIRI, Value: value}
}

// Blank returns a blank node term.
func Blank(id string) Term {
	return Term{Kind: KindBlank, Value: id}
}

// Literal returns a typed literal. An empty datatype means xsd:string.
func Literal(value, datatype string) Term {
	if datatype == "" {
		datatype = octa.XSDString
	}
	return Term{Kind: KindLiteral, Value: value, Datatype: datatype}
}

// String returns a plain string literal.
func String(value string) Term {
	return Literal(value, octa.XSDString)
}

// LangString returns a language-tagged string literal.
func LangString(value, lang string) Term {
	return Term{Kind: KindLiteral, Value: value, Datatype: octa.RDFLangStr, Lang: strings.ToLower(lang)}
}

// Integer returns an xsd:integer literal.
func Integer(v int64) Term {
	return Literal(strconv.FormatInt(v, 10), octa.XSDInteger)
}

// Double returns an xsd:double literal.
func Double(v float64) Term {
	return Literal(strconv.FormatFloat(v, 'g', -1, 64), octa.XSDDouble)
}

// Boolean returns an xsd:boolean literal.
func Boolean(v bool) Term {
	return Literal(strconv.FormatBool(v), octa.XSDBoolean)
}

// Date returns a plain literal for a YAML timestamp: date-only values keep
// the YYYY-MM-DD form, anything else is rendered as RFC 3339.
func Date(t time.Time) Term {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return String(t.Format("2006-01-02"))
	}
	return String(t.Format(time.RFC3339))
}

// IsZero reports whether the term is the Any wildcard.
func (t Term) IsZero() bool { return t.Kind == Any }

// IsIRI reports whether the term is an IRI.
func (t Term) IsIRI() bool { return t.Kind == KindIRI }

// IsBlank reports whether the term is a blank node.
func (t Term) IsBlank() bool { return t.Kind == KindBlank }

// IsLiteral reports whether the term is a literal.
func (t Term) IsLiteral() bool { return t.Kind == KindLiteral }

// IsResource reports whether the term may appear as a subject.
func (t Term) IsResource() bool { return t.Kind == KindIRI || t.Kind == KindBlank }

// String renders the term in N-Triples syntax.
func (t Term) String() string {
	switch t.Kind {
	case KindIRI:
		return "<" + t.Value + ">"
	case KindBlank:
		return "_:" + t.Value
	case KindLiteral:
		quoted := `"` + escapeLiteral(t.Value) + `"`
		switch {
		case t.Lang != "":
			return quoted + "@" + t.Lang
		case t.Datatype == "" || t.Datatype == octa.XSDString:
			return quoted
		default:
			return quoted + "^^<" + t.Datatype + ">"
		}
	default:
		return "*"
	}
}

// Native converts the term to a Go value: numbers and booleans for typed
// literals, the lexical form for other literals and the identifier for IRIs
// and blank nodes.
func (t Term) Native() any {
	if t.Kind != KindLiteral {
		return t.Value
	}
	switch t.Datatype {
	case octa.XSDInteger, octa.XSDInt, octa.XSDLong:
		if v, err := strconv.ParseInt(t.Value, 10, 64); err == nil {
			return v
		}
	case octa.XSDDecimal, octa.XSDDouble, octa.XSDFloat:
		if v, err := strconv.ParseFloat(t.Value, 64); err == nil {
			return v
		}
	case octa.XSDBoolean:
		if v, err := strconv.ParseBool(t.Value); err == nil {
			return v
		}
	}
	return t.Value
}

// ParseTerm parses a term in N-Triples syntax, the inverse of String.
func ParseTerm(s string) (Term, error) {
	switch {
	case strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">"):
		return IRI(s[1 : len(s)-1]), nil
	case strings.HasPrefix(s, "_:"):
		return Blank(s[2:]), nil
	case strings.HasPrefix(s, `"`):
		end := closingQuote(s)
		if end < 0 {
			return Term{}, fmt.Errorf("unterminated literal: %s", s)
		}
		value := unescapeLiteral(s[1:end])
		rest := s[end+1:]
		switch {
		case rest == "":
			return String(value), nil
		case strings.HasPrefix(rest, "@"):
			return LangString(value, rest[1:]), nil
		case strings.HasPrefix(rest, "^^<") && strings.HasSuffix(rest, ">"):
			return Literal(value, rest[3:len(rest)-1]), nil
		}
		return Term{}, fmt.Errorf("malformed literal suffix: %s", s)
	}
	return Term{}, fmt.Errorf("not an N-Triples term: %s", s)
}

func closingQuote(s string) int {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return -1
}

var literalEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)

func escapeLiteral(s string) string {
	return literalEscaper.Replace(s)
}

func unescapeLiteral(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		default:
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}
