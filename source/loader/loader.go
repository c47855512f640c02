// Package loader turns source files into streams of facts. Each supported
// file kind has one loader, selected by an ordered table of path globs.
package loader

import (
	"fmt"
	"iter"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/c360studio/octiron/ldcontext"
	"github.com/c360studio/octiron/rdf"
)

// Kind identifies a loader.
type Kind int

// Loader kinds. KindNone means no loader applies and the file is skipped.
const (
	KindNone Kind = iota
	KindMarkdown
	KindTurtle
	KindYAML
)

func (k Kind) String() string {
	switch k {
	case KindMarkdown:
		return "markdown"
	case KindTurtle:
		return "turtle"
	case KindYAML:
		return "yaml"
	default:
		return "none"
	}
}

// table is consulted in order; the first matching pattern wins.
var table = []struct {
	pattern string
	kind    Kind
}{
	{"**/*.md", KindMarkdown},
	{"**/*.ttl", KindTurtle},
	{"**/*.{yaml,yml}", KindYAML},
}

// Select returns the loader kind for path. Context definition files never
// match a loader.
func Select(path string) Kind {
	if ldcontext.IsContextFile(path) {
		return KindNone
	}
	name := strings.TrimLeft(filepath.ToSlash(path), "/")
	for _, entry := range table {
		if ok, _ := doublestar.Match(entry.pattern, name); ok {
			return entry.kind
		}
	}
	return KindNone
}

// Request carries everything a loader needs to read one file.
type Request struct {
	// Path is the file to read.
	Path string

	// Context is the effective JSON-LD context of the file's directory.
	Context ldcontext.Context

	// LocalIRI names the file and its sub-graph, e.g. local:posts/a.md.
	LocalIRI string

	// GlobalURL is the page's public URL; empty when unknown.
	GlobalURL string

	// Logger receives diagnostics; defaults to slog.Default().
	Logger *slog.Logger
}

// ParseError reports a source file that could not be parsed. No facts are
// produced for such a file.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Load runs the loader of the given kind. The file is parsed completely
// before Load returns, so a malformed file fails here rather than halfway
// through the stream.
func Load(kind Kind, req Request) (*Stream, error) {
	if req.Logger == nil {
		req.Logger = slog.Default()
	}

	var triples []rdf.Triple
	var err error
	switch kind {
	case KindMarkdown:
		triples, err = loadMarkdown(req)
	case KindTurtle:
		triples, err = loadTurtle(req)
	case KindYAML:
		triples, err = loadYAML(req)
	default:
		return nil, fmt.Errorf("load %s: no loader for kind %s", req.Path, kind)
	}
	if err != nil {
		return nil, &ParseError{Path: req.Path, Err: err}
	}

	return &Stream{triples: triples, path: req.Path, logger: req.Logger}, nil
}

// Stream is a single-pass sequence of facts read from one file.
type Stream struct {
	triples  []rdf.Triple
	path     string
	logger   *slog.Logger
	consumed atomic.Bool
}

// All yields the facts. A stream can be iterated once; later iterations
// yield nothing.
func (s *Stream) All() iter.Seq[rdf.Triple] {
	return func(yield func(rdf.Triple) bool) {
		if s.consumed.Swap(true) {
			s.logger.Warn("Fact stream iterated twice", "path", s.path)
			return
		}
		for _, t := range s.triples {
			if !yield(t) {
				return
			}
		}
	}
}

// Len returns the number of facts in the stream.
func (s *Stream) Len() int {
	return len(s.triples)
}
