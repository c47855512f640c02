package sparql

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIRI
	tokWord // keywords, prefixed names, blank node labels, booleans
	tokVar
	tokString
	tokNumber
	tokLang
	tokPunct
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return "end of input"
	case tokIRI:
		return "<" + t.text + ">"
	case tokVar:
		return "?" + t.text
	case tokString:
		return fmt.Sprintf("%q", t.text)
	default:
		return t.text
	}
}

// SyntaxError reports a malformed query or update.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("sparql: syntax error at offset %d: %s", e.Offset, e.Msg)
}

func lex(input string) ([]token, error) {
	l := &lexer{src: input}
	var tokens []token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.kind == tokEOF {
			return tokens, nil
		}
	}
}

type lexer struct {
	src string
	pos int
}

func (l *lexer) errorf(format string, args ...any) error {
	return &SyntaxError{Offset: l.pos, Msg: fmt.Sprintf(format, args...)}
}

func (l *lexer) peekByte(offset int) byte {
	if l.pos+offset < len(l.src) {
		return l.src[l.pos+offset]
	}
	return 0
}

func (l *lexer) skipSpaceAndComments() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '#':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			l.pos++
		default:
			return
		}
	}
}

func (l *lexer) next() (token, error) {
	l.skipSpaceAndComments()
	start := l.pos
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: start}, nil
	}

	c := l.src[l.pos]
	switch {
	case c == '<':
		if iri, ok := l.scanIRI(); ok {
			return token{kind: tokIRI, text: iri, pos: start}, nil
		}
		if l.peekByte(1) == '=' {
			l.pos += 2
			return token{kind: tokPunct, text: "<=", pos: start}, nil
		}
		l.pos++
		return token{kind: tokPunct, text: "<", pos: start}, nil

	case c == '?' || c == '$':
		l.pos++
		name := l.scanWhile(isNameChar)
		if name == "" {
			return token{}, l.errorf("empty variable name")
		}
		return token{kind: tokVar, text: name, pos: start}, nil

	case c == '"' || c == '\'':
		s, err := l.scanString()
		if err != nil {
			return token{}, err
		}
		return token{kind: tokString, text: s, pos: start}, nil

	case c == '@':
		l.pos++
		lang := l.scanWhile(func(r byte) bool { return isLetter(r) || isDigit(r) || r == '-' })
		if lang == "" {
			return token{}, l.errorf("empty language tag")
		}
		return token{kind: tokLang, text: lang, pos: start}, nil

	case isDigit(c) || ((c == '-' || c == '+') && isDigit(l.peekByte(1))):
		return token{kind: tokNumber, text: l.scanNumber(), pos: start}, nil

	case isLetter(c) || c == '_' || c == ':':
		word := l.scanWhile(isWordChar)
		for strings.HasSuffix(word, ".") {
			word = word[:len(word)-1]
			l.pos--
		}
		return token{kind: tokWord, text: word, pos: start}, nil
	}

	for _, op := range []string{"^^", "&&", "||", "!=", ">=", "<="} {
		if strings.HasPrefix(l.src[l.pos:], op) {
			l.pos += len(op)
			return token{kind: tokPunct, text: op, pos: start}, nil
		}
	}
	if strings.ContainsRune("{}().;,*=<>!", rune(c)) {
		l.pos++
		return token{kind: tokPunct, text: string(c), pos: start}, nil
	}
	return token{}, l.errorf("unexpected character %q", c)
}

// scanIRI consumes <...> when the bracket encloses an IRI rather than a
// comparison operator.
func (l *lexer) scanIRI() (string, bool) {
	for i := l.pos + 1; i < len(l.src); i++ {
		switch c := l.src[i]; {
		case c == '>':
			iri := l.src[l.pos+1 : i]
			l.pos = i + 1
			return iri, true
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '<' || c == '"' || c == '{' || c == '}':
			return "", false
		}
	}
	return "", false
}

func (l *lexer) scanString() (string, error) {
	start := l.pos
	quote := l.src[l.pos]
	long := strings.HasPrefix(l.src[l.pos:], strings.Repeat(string(quote), 3))
	if long {
		l.pos += 3
	} else {
		l.pos++
	}

	var sb strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\\':
			if l.pos+1 >= len(l.src) {
				return "", l.errorf("unterminated escape")
			}
			switch e := l.src[l.pos+1]; e {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			default:
				sb.WriteByte(e)
			}
			l.pos += 2
		case c == quote && long:
			if strings.HasPrefix(l.src[l.pos:], strings.Repeat(string(quote), 3)) {
				l.pos += 3
				return sb.String(), nil
			}
			sb.WriteByte(c)
			l.pos++
		case c == quote:
			l.pos++
			return sb.String(), nil
		case (c == '\n' || c == '\r') && !long:
			return "", &SyntaxError{Offset: start, Msg: "newline in string literal"}
		default:
			sb.WriteByte(c)
			l.pos++
		}
	}
	return "", &SyntaxError{Offset: start, Msg: "unterminated string literal"}
}

func (l *lexer) scanNumber() string {
	start := l.pos
	if c := l.src[l.pos]; c == '-' || c == '+' {
		l.pos++
	}
	l.scanWhile(isDigit)
	if l.peekByte(0) == '.' && isDigit(l.peekByte(1)) {
		l.pos++
		l.scanWhile(isDigit)
	}
	if c := l.peekByte(0); c == 'e' || c == 'E' {
		l.pos++
		if c := l.peekByte(0); c == '-' || c == '+' {
			l.pos++
		}
		l.scanWhile(isDigit)
	}
	return l.src[start:l.pos]
}

func (l *lexer) scanWhile(pred func(byte) bool) string {
	start := l.pos
	for l.pos < len(l.src) && pred(l.src[l.pos]) {
		l.pos++
	}
	return l.src[start:l.pos]
}

func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isLetter(c byte) bool { return c >= 0x80 || unicode.IsLetter(rune(c)) }

func isNameChar(c byte) bool { return isLetter(c) || isDigit(c) || c == '_' }

func isWordChar(c byte) bool {
	return isNameChar(c) || c == '-' || c == '.' || c == ':' || c == '%' || c == '/'
}
