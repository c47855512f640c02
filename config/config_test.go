package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Docs.Root != "docs" {
		t.Errorf("expected default docs root docs, got %s", cfg.Docs.Root)
	}
	if cfg.Docs.ContextCacheSize != 256 {
		t.Errorf("expected default context cache size 256, got %d", cfg.Docs.ContextCacheSize)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected default log level info, got %s", cfg.Log.Level)
	}
	if cfg.Inference.DisableClosure {
		t.Error("expected the closure to be enabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing docs root",
			modify:  func(c *Config) { c.Docs.Root = "" },
			wantErr: true,
		},
		{
			name:    "negative cache size",
			modify:  func(c *Config) { c.Docs.ContextCacheSize = -1 },
			wantErr: true,
		},
		{
			name:    "invalid exclude pattern",
			modify:  func(c *Config) { c.Docs.Exclude = []string{"drafts/[a"} },
			wantErr: true,
		},
		{
			name:    "valid exclude pattern",
			modify:  func(c *Config) { c.Docs.Exclude = []string{"drafts/**"} },
			wantErr: false,
		},
		{
			name:    "unknown log level",
			modify:  func(c *Config) { c.Log.Level = "verbose" },
			wantErr: true,
		},
		{
			name:    "upper case log level",
			modify:  func(c *Config) { c.Log.Level = "DEBUG" },
			wantErr: false,
		},
		{
			name:    "negative debounce",
			modify:  func(c *Config) { c.Watch.Debounce = -time.Second },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "octiron.yaml")

	content := `
docs:
  root: site/docs
  exclude:
    - "drafts/**"
inference:
  rules_dir: /etc/octiron/rules
  disable_closure: true
watch:
  debounce: 2s
log:
  level: debug
namespaces:
  ex: https://example.com/
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Docs.Root != filepath.Join(tmpDir, "site", "docs") {
		t.Errorf("expected docs root relative to the config file, got %s", cfg.Docs.Root)
	}
	if len(cfg.Docs.Exclude) != 1 || cfg.Docs.Exclude[0] != "drafts/**" {
		t.Errorf("unexpected exclude list %v", cfg.Docs.Exclude)
	}
	if cfg.Inference.RulesDir != "/etc/octiron/rules" {
		t.Errorf("expected absolute rules dir to be kept, got %s", cfg.Inference.RulesDir)
	}
	if !cfg.Inference.DisableClosure {
		t.Error("expected closure to be disabled")
	}
	if cfg.Watch.Debounce != 2*time.Second {
		t.Errorf("expected debounce 2s, got %v", cfg.Watch.Debounce)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Log.Level)
	}
	if cfg.Docs.ContextCacheSize != 256 {
		t.Errorf("expected default cache size to survive, got %d", cfg.Docs.ContextCacheSize)
	}
	if cfg.Namespaces["ex"] != "https://example.com/" {
		t.Errorf("expected namespace ex, got %v", cfg.Namespaces)
	}
}

func TestLoadFromFile_Malformed(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "octiron.yaml")
	if err := os.WriteFile(configPath, []byte("docs: [unclosed"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	if _, err := LoadFromFile(configPath); err == nil {
		t.Error("expected a parse error")
	}
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	base.Namespaces = map[string]string{"a": "https://a.example/"}
	override := &Config{
		Docs: DocsConfig{
			Root: "/override/docs",
		},
		Namespaces: map[string]string{"b": "https://b.example/"},
	}

	base.Merge(override)

	if base.Docs.Root != "/override/docs" {
		t.Errorf("expected docs root /override/docs, got %s", base.Docs.Root)
	}
	// Log level should remain from base since override didn't set it
	if base.Log.Level != "info" {
		t.Errorf("expected log level to remain default, got %s", base.Log.Level)
	}
	if len(base.Namespaces) != 2 {
		t.Errorf("expected namespaces to be extended, got %v", base.Namespaces)
	}
}

func TestConfigSaveToFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "subdir", "config.yaml")

	cfg := DefaultConfig()
	cfg.Docs.Root = "/saved/docs"

	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if loaded.Docs.Root != "/saved/docs" {
		t.Errorf("expected docs root /saved/docs, got %s", loaded.Docs.Root)
	}
}

func TestLoaderLayers(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	userConfig := filepath.Join(home, UserConfigDir, UserConfigFile)
	if err := os.MkdirAll(filepath.Dir(userConfig), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(userConfig, []byte("log:\n  level: debug\nwatch:\n  debounce: 1s\n"), 0644); err != nil {
		t.Fatal(err)
	}

	project := t.TempDir()
	if err := os.WriteFile(filepath.Join(project, ProjectConfigFile), []byte("watch:\n  debounce: 3s\n"), 0644); err != nil {
		t.Fatal(err)
	}
	workDir := filepath.Join(project, "docs", "guide")
	if err := os.MkdirAll(workDir, 0755); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewLoader(nil).LoadFrom(workDir)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("expected user log level debug, got %s", cfg.Log.Level)
	}
	if cfg.Watch.Debounce != 3*time.Second {
		t.Errorf("expected project debounce to win, got %v", cfg.Watch.Debounce)
	}
	if cfg.Docs.Root != filepath.Join(project, "docs") {
		t.Errorf("expected default docs root next to the project config, got %s", cfg.Docs.Root)
	}
	if cfg.Inference.RulesDir != filepath.Join(project, "inference") {
		t.Errorf("expected default rules dir next to the project config, got %s", cfg.Inference.RulesDir)
	}
}

func TestLoaderWithoutConfigFiles(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	workDir := t.TempDir()

	cfg, err := NewLoader(nil).LoadFrom(workDir)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Docs.Root != filepath.Join(workDir, "docs") {
		t.Errorf("expected docs root below the work dir, got %s", cfg.Docs.Root)
	}
}

func TestEnsureUserConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	if err := NewLoader(nil).EnsureUserConfig(); err != nil {
		t.Fatalf("EnsureUserConfig() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, UserConfigDir, UserConfigFile)); err != nil {
		t.Errorf("user config was not created: %v", err)
	}
}
