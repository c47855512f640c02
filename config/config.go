// Package config provides configuration loading and management for octiron.
package config

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Config represents the complete octiron configuration
type Config struct {
	Docs       DocsConfig        `yaml:"docs"`
	Inference  InferenceConfig   `yaml:"inference"`
	Watch      WatchConfig       `yaml:"watch"`
	Log        LogConfig         `yaml:"log"`
	Namespaces map[string]string `yaml:"namespaces,omitempty"`
}

// DocsConfig configures the documentation tree
type DocsConfig struct {
	// Root is the documentation root directory (default: docs)
	Root string `yaml:"root"`
	// Exclude lists doublestar globs, relative to Root, of files to skip
	Exclude []string `yaml:"exclude,omitempty"`
	// ContextCacheSize bounds the number of memoized directory contexts
	ContextCacheSize int `yaml:"context_cache_size"`
	// BaseURL prefixes the site-relative URL of every page (default: /)
	BaseURL string `yaml:"base_url"`
}

// InferenceConfig configures the inference stage
type InferenceConfig struct {
	// RulesDir holds user rule files; a missing directory is not an error
	RulesDir string `yaml:"rules_dir"`
	// DisableClosure turns the deductive closure off
	DisableClosure bool `yaml:"disable_closure,omitempty"`
	// DerivedFactLimit caps the facts the closure may derive (0 = default)
	DerivedFactLimit int `yaml:"derived_fact_limit,omitempty"`
}

// WatchConfig configures watch mode
type WatchConfig struct {
	// Debounce is the quiet period before a batch of changes is processed
	Debounce time.Duration `yaml:"debounce"`
}

// LogConfig configures logging
type LogConfig struct {
	// Level is one of debug, info, warn or error
	Level string `yaml:"level"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Docs: DocsConfig{
			Root:             "docs",
			ContextCacheSize: 256,
			BaseURL:          "/",
		},
		Inference: InferenceConfig{
			RulesDir: "inference",
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LogLevels lists the accepted log levels.
var LogLevels = []string{"debug", "info", "warn", "error"}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Docs.Root == "" {
		return fmt.Errorf("docs.root is required")
	}
	if c.Docs.ContextCacheSize < 0 {
		return fmt.Errorf("docs.context_cache_size must not be negative")
	}
	for _, pattern := range c.Docs.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("docs.exclude: invalid pattern %q", pattern)
		}
	}
	if c.Inference.DerivedFactLimit < 0 {
		return fmt.Errorf("inference.derived_fact_limit must not be negative")
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	valid := false
	for _, level := range LogLevels {
		valid = valid || strings.EqualFold(c.Log.Level, level)
	}
	if !valid {
		return fmt.Errorf("log.level must be one of %s", strings.Join(LogLevels, ", "))
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
// Relative paths in the file are resolved against its directory.
func LoadFromFile(path string) (*Config, error) {
	layer, err := readLayer(path)
	if err != nil {
		return nil, err
	}
	config := DefaultConfig()
	config.Merge(layer)
	return config, nil
}

// readLayer decodes a config file without applying defaults, so that
// merging it only overrides what the file sets.
func readLayer(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	layer := &Config{}
	if err := yaml.Unmarshal(data, layer); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	layer.Resolve(filepath.Dir(path))
	return layer, nil
}

// Resolve makes the relative directories of c absolute against base.
func (c *Config) Resolve(base string) {
	c.Docs.Root = resolvePath(base, c.Docs.Root)
	c.Inference.RulesDir = resolvePath(base, c.Inference.RulesDir)
}

func resolvePath(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return filepath.Join(base, path)
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Docs
	if other.Docs.Root != "" {
		c.Docs.Root = other.Docs.Root
	}
	if len(other.Docs.Exclude) > 0 {
		c.Docs.Exclude = other.Docs.Exclude
	}
	if other.Docs.ContextCacheSize != 0 {
		c.Docs.ContextCacheSize = other.Docs.ContextCacheSize
	}
	if other.Docs.BaseURL != "" {
		c.Docs.BaseURL = other.Docs.BaseURL
	}

	// Inference
	if other.Inference.RulesDir != "" {
		c.Inference.RulesDir = other.Inference.RulesDir
	}
	if other.Inference.DisableClosure {
		c.Inference.DisableClosure = true
	}
	if other.Inference.DerivedFactLimit != 0 {
		c.Inference.DerivedFactLimit = other.Inference.DerivedFactLimit
	}

	// Watch
	if other.Watch.Debounce != 0 {
		c.Watch.Debounce = other.Watch.Debounce
	}

	// Log
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}

	// Namespaces extend rather than replace
	if len(other.Namespaces) > 0 {
		if c.Namespaces == nil {
			c.Namespaces = make(map[string]string, len(other.Namespaces))
		}
		maps.Copy(c.Namespaces, other.Namespaces)
	}
}
