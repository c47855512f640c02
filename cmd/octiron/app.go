package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360studio/octiron"
	"github.com/c360studio/octiron/config"
	"github.com/c360studio/octiron/inference"
	graphbuilder "github.com/c360studio/octiron/processor/graph-builder"
	"github.com/c360studio/octiron/vocabulary/octa"
)

// App wires the engine and the pipeline from the loaded configuration.
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	engine   *octiron.Octiron
	builder  *graphbuilder.Builder
}

// NewApp loads configuration and creates the engine. Logs go to stderr.
func NewApp(flags *globalFlags, stderr io.Writer) (*App, error) {
	bootstrap := newLogger(flags.logLevel, stderr)

	cfg, err := loadConfig(flags, bootstrap)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(cfg.Log.Level, stderr)
	slog.SetDefault(logger)

	var reasoner inference.Reasoner
	if !cfg.Inference.DisableClosure {
		reasoner = &inference.ClosureReasoner{
			DerivedFactLimit: cfg.Inference.DerivedFactLimit,
			Logger:           logger,
		}
	}

	namespaces := octa.DefaultNamespaces()
	maps.Copy(namespaces, cfg.Namespaces)

	registry := prometheus.NewRegistry()
	engine, err := octiron.New(octiron.Options{
		Root:             cfg.Docs.Root,
		Namespaces:       namespaces,
		Reasoner:         reasoner,
		RulesDir:         cfg.Inference.RulesDir,
		ContextCacheSize: cfg.Docs.ContextCacheSize,
		Logger:           logger,
		Registerer:       registry,
	})
	if err != nil {
		return nil, err
	}

	builder, err := graphbuilder.NewBuilder(engine, graphbuilder.Options{
		Exclude: cfg.Docs.Exclude,
		BaseURL: cfg.Docs.BaseURL,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		engine:   engine,
		builder:  builder,
	}, nil
}

// Build ingests the documentation tree and runs inference.
func (a *App) Build(ctx context.Context) (*graphbuilder.Report, error) {
	return a.builder.Build(ctx)
}

func loadConfig(flags *globalFlags, logger *slog.Logger) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if flags.configPath != "" {
		cfg, err = config.LoadFromFile(flags.configPath)
		if err == nil {
			cfg.Resolve(filepath.Dir(flags.configPath))
		}
	} else {
		cfg, err = config.NewLoader(logger).Load()
	}
	if err != nil {
		return nil, err
	}

	if flags.docsPath != "" {
		abs, err := filepath.Abs(flags.docsPath)
		if err != nil {
			return nil, fmt.Errorf("resolve docs path: %w", err)
		}
		cfg.Docs.Root = abs
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	return cfg, nil
}

func newLogger(level string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}
