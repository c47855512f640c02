// Package graphbuilder runs the ingestion pipeline over a documentation
// tree: a batch build and a watch mode that keeps the graph current.
package graphbuilder

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"github.com/c360studio/octiron"
	"github.com/c360studio/octiron/inference"
	"github.com/c360studio/octiron/vocabulary/octa"
)

// Failure records a file that could not be ingested.
type Failure struct {
	Path string
	Err  error
}

// Report summarizes a build or a watch batch.
type Report struct {
	RunID     string
	Ingested  int
	UpToDate  int
	Skipped   int
	Failed    int
	Forgotten int
	Quads     int
	Failures  []Failure
	Inference inference.Report
	Duration  time.Duration
}

// Options configures a Builder.
type Options struct {
	// Exclude lists doublestar globs, relative to the engine root, of files
	// and directories to leave out.
	Exclude []string

	// BaseURL prefixes the site-relative URL of every page.
	BaseURL string

	Logger *slog.Logger
}

// Builder feeds a documentation tree into an engine.
type Builder struct {
	engine  *octiron.Octiron
	exclude []string
	baseURL string
	logger  *slog.Logger
}

// NewBuilder creates a builder for the tree rooted at the engine's root.
func NewBuilder(engine *octiron.Octiron, opts Options) (*Builder, error) {
	for _, pattern := range opts.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		engine:  engine,
		exclude: opts.Exclude,
		baseURL: opts.BaseURL,
		logger:  logger,
	}, nil
}

// Build ingests every file below the root in lexical order, forgets files
// that disappeared since the last build and runs inference once. A file
// that fails to ingest is logged and recorded in the report; the build
// carries on without its facts. Inference errors abort the build.
func (b *Builder) Build(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{RunID: uuid.NewString()}
	root := b.engine.Root()
	seen := make(map[string]bool)

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if p == root {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if b.ignored(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		iri := octiron.SrcPathToIRI(rel)
		seen[iri] = true
		b.ingest(p, rel, iri, report)
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("walk %s: %w", root, err)
	}

	for iri := range b.engine.CachedFiles() {
		if !seen[iri] {
			b.engine.Forget(iri)
			report.Forgotten++
			b.logger.Debug("Forgot removed file", "iri", iri)
		}
	}

	if err := b.infer(ctx, report); err != nil {
		return report, err
	}
	report.Duration = time.Since(start)

	b.logger.Info("Graph built",
		"run_id", report.RunID,
		"ingested", report.Ingested,
		"up_to_date", report.UpToDate,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"forgotten", report.Forgotten,
		"quads", report.Quads,
		"duration", report.Duration)
	return report, nil
}

// ignored reports whether a slash separated path relative to the root is
// hidden or excluded.
func (b *Builder) ignored(rel string) bool {
	if isHidden(rel) {
		return true
	}
	for _, pattern := range b.exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func (b *Builder) ingest(p, rel, iri string, report *Report) {
	globalURL := ""
	if b.baseURL != "" {
		globalURL = b.baseURL + octiron.IRIToURL(iri)
	}
	state, err := b.engine.UpdateFromFile(p, iri, globalURL)
	if err != nil {
		report.Failed++
		report.Failures = append(report.Failures, Failure{Path: rel, Err: err})
		b.logger.Warn("Failed to ingest file", "path", rel, "error", err)
		return
	}
	switch state {
	case octiron.UpToDate:
		report.UpToDate++
	case octiron.Skipped:
		report.Skipped++
	default:
		report.Ingested++
	}
}

func (b *Builder) infer(ctx context.Context, report *Report) error {
	inf, err := b.engine.ApplyInference(ctx)
	report.Inference = inf
	report.Quads = b.engine.Graph().Len()
	if err != nil {
		b.logger.Error("Inference failed", "error", err)
		return err
	}
	return nil
}

// Apply brings the graph up to date with a batch of file changes and then
// re-runs inference. A changed context file drops memoized contexts and
// re-ingests every cached file below its directory.
func (b *Builder) Apply(ctx context.Context, batch []WatchEvent) (*Report, error) {
	start := time.Now()
	report := &Report{RunID: uuid.NewString()}

	for _, event := range batch {
		if b.ignored(event.Path) {
			continue
		}
		iri := octiron.SrcPathToIRI(event.Path)

		switch {
		case event.Context:
			b.engine.InvalidateContexts()
			dirIRI := b.engine.DirIRI(filepath.Dir(event.AbsPath))
			expired := b.engine.Expire(dirIRI)
			b.logger.Info("Context changed", "path", event.Path, "expired", len(expired))
			for _, iri := range expired {
				rel := strings.TrimPrefix(iri, octa.Local)
				p := b.engine.SrcPath(iri)
				if _, err := os.Stat(p); err != nil {
					b.engine.Forget(iri)
					report.Forgotten++
					continue
				}
				b.ingest(p, rel, iri, report)
			}
		case event.Operation == WatchOpDelete:
			if removed := b.engine.Forget(iri); removed > 0 {
				report.Forgotten++
			}
		default:
			b.ingest(event.AbsPath, event.Path, iri, report)
		}
	}

	if err := b.infer(ctx, report); err != nil {
		return report, err
	}
	report.Duration = time.Since(start)
	b.logger.Info("Graph updated",
		"run_id", report.RunID,
		"changes", len(batch),
		"ingested", report.Ingested,
		"failed", report.Failed,
		"forgotten", report.Forgotten,
		"quads", report.Quads)
	return report, nil
}

// Watch builds the graph and then applies file changes as they happen
// until ctx is done.
func (b *Builder) Watch(ctx context.Context, debounce time.Duration) error {
	if _, err := b.Build(ctx); err != nil {
		return err
	}

	w, err := NewWatcher(b.engine.Root(), debounce, b.logger)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Start(ctx); err != nil {
		w.Stop()
		return fmt.Errorf("start watcher: %w", err)
	}
	defer w.Stop()

	for batch := range w.Events() {
		if _, err := b.Apply(ctx, batch); err != nil {
			b.logger.Error("Failed to apply changes", "error", err)
		}
	}
	return nil
}

// isHidden reports whether any segment of a slash separated path is hidden.
func isHidden(rel string) bool {
	for dir := rel; dir != "." && dir != "/" && dir != ""; dir = path.Dir(dir) {
		if strings.HasPrefix(path.Base(dir), ".") {
			return true
		}
	}
	return false
}
