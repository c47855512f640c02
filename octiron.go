// Package octiron assembles a semantic graph from a documentation tree.
//
// Every source file contributes one named sub-graph, identified by the
// file's local IRI. Files are re-read only when their modification time
// moves past the cached one, so repeated builds are cheap. After ingestion
// the inference stage derives new facts into a sub-graph of its own.
package octiron

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360studio/octiron/graph"
	"github.com/c360studio/octiron/inference"
	"github.com/c360studio/octiron/ldcontext"
	"github.com/c360studio/octiron/rdf"
	"github.com/c360studio/octiron/source/loader"
	"github.com/c360studio/octiron/sparql"
	"github.com/c360studio/octiron/vocabulary/octa"
)

// CacheState is the cache status of a file when UpdateFromFile saw it.
type CacheState int

// Cache states.
const (
	// NotCached files have never been ingested.
	NotCached CacheState = iota
	// UpToDate files were ingested at or after their modification time.
	UpToDate
	// Expired files changed since they were ingested.
	Expired
	// Skipped files have no loader.
	Skipped
)

func (s CacheState) String() string {
	switch s {
	case NotCached:
		return "not_cached"
	case UpToDate:
		return "up_to_date"
	case Expired:
		return "expired"
	default:
		return "skipped"
	}
}

// Options configures an Octiron.
type Options struct {
	// Root is the documentation root. Required.
	Root string

	// Namespaces are the prefixes known to queries. Defaults to
	// octa.DefaultNamespaces().
	Namespaces map[string]string

	// Reasoner computes the deductive closure. Nil disables the closure
	// step; built-in and user rules still run.
	Reasoner inference.Reasoner

	// RulesDir holds user inference rules. Optional.
	RulesDir string

	// ContextCacheSize bounds memoized directory contexts.
	ContextCacheSize int

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Registerer receives the engine metrics. Nil leaves them
	// unregistered.
	Registerer prometheus.Registerer
}

// Octiron owns the graph store and the per-file cache.
type Octiron struct {
	root     string
	logger   *slog.Logger
	metrics  *Metrics
	contexts *ldcontext.Resolver
	stage    *inference.Stage

	// mu serializes writers and makes each file update atomic for queries.
	mu    sync.RWMutex
	store *graph.Store
	cache map[string]time.Time
}

// New creates an engine for the tree rooted at opts.Root.
func New(opts Options) (*Octiron, error) {
	if opts.Root == "" {
		return nil, fmt.Errorf("create engine: root directory is required")
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", root)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	namespaces := opts.Namespaces
	if namespaces == nil {
		namespaces = octa.DefaultNamespaces()
	}

	contexts, err := ldcontext.NewResolver(root, opts.ContextCacheSize)
	if err != nil {
		return nil, err
	}
	metrics, err := NewMetrics(opts.Registerer)
	if err != nil {
		return nil, err
	}

	return &Octiron{
		root:     root,
		logger:   logger,
		metrics:  metrics,
		contexts: contexts,
		stage: &inference.Stage{
			Reasoner: opts.Reasoner,
			RulesDir: opts.RulesDir,
			Logger:   logger,
		},
		store: graph.NewStore(namespaces),
		cache: make(map[string]time.Time),
	}, nil
}

// Root returns the absolute documentation root.
func (o *Octiron) Root() string {
	return o.root
}

// Graph returns the assembled graph. Callers must treat it as read-only.
func (o *Octiron) Graph() *graph.Store {
	return o.store
}

// Metrics returns the engine metrics.
func (o *Octiron) Metrics() *Metrics {
	return o.metrics
}

// UpdateFromFile brings the sub-graph of localIRI up to date with the file
// at path. An up-to-date file is not read. An expired file's sub-graph is
// replaced as a whole. A file that fails to parse keeps no facts and its
// cache entry is left alone, so the next call retries it.
func (o *Octiron) UpdateFromFile(path, localIRI, globalURL string) (CacheState, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return NotCached, fmt.Errorf("resolve path: %w", err)
	}
	// The modification time is taken before parsing so that a change made
	// while parsing expires the entry.
	info, err := os.Stat(path)
	if err != nil {
		return NotCached, fmt.Errorf("stat %s: %w", path, err)
	}
	mtime := info.ModTime()

	o.mu.Lock()
	defer o.mu.Unlock()

	state := NotCached
	if cached, ok := o.cache[localIRI]; ok {
		if !cached.Before(mtime) {
			o.metrics.filesSkipped.WithLabelValues(UpToDate.String()).Inc()
			return UpToDate, nil
		}
		state = Expired
	}

	kind := loader.Select(path)
	if kind == loader.KindNone {
		o.metrics.filesSkipped.WithLabelValues(Skipped.String()).Inc()
		return Skipped, nil
	}

	graphIRI := rdf.IRI(localIRI)
	fail := func(err error) (CacheState, error) {
		o.metrics.filesFailed.WithLabelValues(kind.String()).Inc()
		if state == Expired {
			removed := o.store.ClearGraph(graphIRI)
			o.logger.Debug("Cleared stale sub-graph", "iri", localIRI, "count", removed)
			o.metrics.quads.Set(float64(o.store.Len()))
		}
		return state, err
	}

	dirContext, err := o.contexts.Resolve(filepath.Dir(path))
	if err != nil {
		return fail(fmt.Errorf("resolve context for %s: %w", path, err))
	}

	stream, err := loader.Load(kind, loader.Request{
		Path:      path,
		Context:   dirContext,
		LocalIRI:  localIRI,
		GlobalURL: globalURL,
		Logger:    o.logger,
	})
	if err != nil {
		return fail(err)
	}

	quads := slices.Collect(rdf.TriplesToQuads(stream.All(), graphIRI))
	if len(quads) > 0 {
		quads = append(quads, o.fileMetadata(path, graphIRI)...)
	}
	removed, added := o.store.ReplaceGraph(graphIRI, quads)
	o.cache[localIRI] = mtime

	o.metrics.filesIngested.WithLabelValues(kind.String()).Inc()
	o.metrics.quads.Set(float64(o.store.Len()))
	o.logger.Debug("Ingested file",
		"path", path,
		"iri", localIRI,
		"state", state.String(),
		"loader", kind.String(),
		"removed", removed,
		"added", added)
	return state, nil
}

// fileMetadata links a file to its directory and every directory up to the
// root to its parent.
func (o *Octiron) fileMetadata(path string, file rdf.Term) []rdf.Quad {
	isChildOf := rdf.IRI(octa.IsChildOf)
	typ := rdf.IRI(octa.RDFType)
	dirType := rdf.IRI(octa.Directory)

	dir := filepath.Dir(path)
	quads := []rdf.Quad{
		{Subject: file, Predicate: rdf.IRI(octa.FileName), Object: rdf.String(filepath.Base(path)), Graph: file},
		{Subject: file, Predicate: isChildOf, Object: rdf.IRI(o.DirIRI(dir)), Graph: file},
	}
	for {
		dirIRI := rdf.IRI(o.DirIRI(dir))
		quads = append(quads, rdf.Quad{Subject: dirIRI, Predicate: typ, Object: dirType, Graph: file})
		if dir == o.root || !isWithin(o.root, dir) {
			return quads
		}
		parent := filepath.Dir(dir)
		quads = append(quads, rdf.Quad{Subject: dirIRI, Predicate: isChildOf, Object: rdf.IRI(o.DirIRI(parent)), Graph: file})
		dir = parent
	}
}

// ClearNamedGraph removes every fact of the sub-graph iri and returns the
// number removed. The cache entry is kept.
func (o *Octiron) ClearNamedGraph(iri string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	removed := o.store.ClearGraph(rdf.IRI(iri))
	o.metrics.quads.Set(float64(o.store.Len()))
	return removed
}

// Forget clears the sub-graph of iri and drops its cache entry.
func (o *Octiron) Forget(iri string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.cache, iri)
	removed := o.store.ClearGraph(rdf.IRI(iri))
	o.metrics.quads.Set(float64(o.store.Len()))
	return removed
}

// CachedFiles returns a copy of the cache: file IRI to the modification
// time seen at its last successful ingestion.
func (o *Octiron) CachedFiles() map[string]time.Time {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return maps.Clone(o.cache)
}

// Expire drops the cache entries of every file whose IRI starts with
// prefix, so their next update re-reads them. Their facts are kept until
// then. It returns the affected IRIs in sorted order.
func (o *Octiron) Expire(prefix string) []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	var expired []string
	for iri := range o.cache {
		if strings.HasPrefix(iri, prefix) {
			o.cache[iri] = time.Time{}
			expired = append(expired, iri)
		}
	}
	slices.Sort(expired)
	return expired
}

// InvalidateContexts drops memoized directory contexts. Call it when a
// context file changes.
func (o *Octiron) InvalidateContexts() {
	o.contexts.Invalidate()
}

// ApplyInference rebuilds the inference sub-graph from the current graph.
func (o *Octiron) ApplyInference(ctx context.Context) (inference.Report, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	timer := prometheus.NewTimer(o.metrics.inferenceDuration)
	report, err := o.stage.Apply(ctx, o.store)
	timer.ObserveDuration()
	o.metrics.quads.Set(float64(o.store.Len()))
	if err != nil {
		return report, fmt.Errorf("apply inference: %w", err)
	}
	return report, nil
}

// Query runs a SELECT, ASK or CONSTRUCT query against the graph. Malformed
// queries fail with a *QueryError.
func (o *Octiron) Query(text string, bindings map[string]any) (*sparql.Result, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	res, err := sparql.NewExecutor(o.store).Query(text, bindings)
	if err != nil {
		return nil, &QueryError{Query: text, Err: err}
	}
	return res, nil
}
