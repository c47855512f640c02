// Package inference derives new facts from the ingested graph: a deductive
// closure, the built-in page rules and user supplied SPARQL update rules.
// Every derived fact lives in the octa:inference sub-graph.
package inference

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/c360studio/octiron/graph"
	"github.com/c360studio/octiron/rdf"
	"github.com/c360studio/octiron/sparql"
	"github.com/c360studio/octiron/vocabulary/octa"
)

// Reasoner adds entailed facts to the inference graph of a store. Running
// it on its own output adds nothing.
type Reasoner interface {
	Expand(ctx context.Context, store *graph.Store) (int, error)
}

// RuleError reports a rule that failed to apply.
type RuleError struct {
	File string
	Err  error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("apply rule %s: %v", e.File, e.Err)
}

func (e *RuleError) Unwrap() error {
	return e.Err
}

// RuleExtensions lists the file extensions recognized as user rules.
var RuleExtensions = []string{".sparql", ".rq", ".ru"}

// Rule is a named SPARQL update deriving facts.
type Rule struct {
	Name   string
	Update string
}

// BuiltinRules are applied on every run, in order.
var BuiltinRules = []Rule{
	{
		Name: "about",
		Update: `PREFIX octa: <` + octa.Namespace + `>
INSERT { ?page octa:about ?thing }
WHERE { ?thing octa:subjectOf ?page }`,
	},
	{
		Name: "title",
		Update: `PREFIX octa: <` + octa.Namespace + `>
PREFIX rdfs: <` + octa.RDFS + `>
INSERT { ?page octa:title ?label }
WHERE { ?thing rdfs:label ?label ; octa:subjectOf ?page }`,
	},
}

// Stage runs inference over a store.
type Stage struct {
	// Reasoner computes the closure; nil disables it.
	Reasoner Reasoner

	// RulesDir holds user rule files; empty or missing disables them.
	RulesDir string

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Report summarizes one inference run.
type Report struct {
	Closure  int
	Builtin  int
	User     int
	Rules    []string
	Duration time.Duration
}

// Total returns the number of facts derived.
func (r Report) Total() int {
	return r.Closure + r.Builtin + r.User
}

// Apply clears the inference graph and derives it anew: first the closure,
// then the built-in rules, then the user rules in directory order. Each
// step sees the output of the previous ones.
func (s *Stage) Apply(ctx context.Context, store *graph.Store) (Report, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()
	var report Report

	inference := rdf.IRI(octa.InferenceGraph)
	if removed := store.ClearGraph(inference); removed > 0 {
		logger.Debug("Cleared inference graph", "count", removed)
	}

	if s.Reasoner != nil {
		n, err := s.Reasoner.Expand(ctx, store)
		if err != nil {
			return report, fmt.Errorf("expand closure: %w", err)
		}
		report.Closure = n
	}

	exec := sparql.NewExecutor(store)
	for _, rule := range BuiltinRules {
		stats, err := exec.Update(rule.Update, inference)
		if err != nil {
			return report, &RuleError{File: rule.Name, Err: err}
		}
		report.Builtin += stats.Inserted
	}

	rules, err := LoadRules(s.RulesDir)
	if err != nil {
		return report, err
	}
	for _, rule := range rules {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		stats, err := exec.Update(rule.Update, inference)
		if err != nil {
			return report, &RuleError{File: rule.Name, Err: err}
		}
		report.User += stats.Inserted
		report.Rules = append(report.Rules, rule.Name)
		logger.Debug("Applied rule", "rule", rule.Name, "inserted", stats.Inserted, "deleted", stats.Deleted)
	}

	report.Duration = time.Since(start)
	logger.Info("Inference complete",
		"closure", report.Closure,
		"builtin", report.Builtin,
		"user", report.User,
		"duration", report.Duration)
	return report, nil
}

// LoadRules reads the rule files of dir in os.ReadDir order. A missing
// directory holds no rules.
func LoadRules(dir string) ([]Rule, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read rules directory: %w", err)
	}

	var rules []Rule
	for _, entry := range entries {
		if entry.IsDir() || !isRuleFile(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &RuleError{File: path, Err: err}
		}
		rules = append(rules, Rule{Name: path, Update: string(data)})
	}
	return rules, nil
}

func isRuleFile(name string) bool {
	ext := filepath.Ext(name)
	for _, e := range RuleExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
