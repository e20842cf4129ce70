package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestLoadConfigFile tests the YAML loader.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile("/nonexistent/path/.sitespider.yaml")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), DefaultConfigFile)
		content := `seed: http://example.com/
crawl:
  maxDepth: 0
  workers: 4
  timeout: 30s
  cooldown: 500ms
  excludePrefixes:
    - http://example.com/private
  includeContains:
    - example.com
  headers:
    X-Test: "1"
proxy:
  host: proxy.local:3128
  user: alice
  password: secret
output:
  dir: crawl-out
  archive: ""
  fresh: false
logging:
  compress: false
report:
  format: markdown
  saveDB: false
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		file, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		cfg := NewConfig()
		file.Apply(cfg)

		if cfg.SeedURL != "http://example.com/" {
			t.Errorf("expected seed, got %q", cfg.SeedURL)
		}
		if cfg.MaxDepth != 0 {
			t.Errorf("expected explicit zero depth, got %d", cfg.MaxDepth)
		}
		if cfg.Workers != 4 {
			t.Errorf("expected 4 workers, got %d", cfg.Workers)
		}
		if cfg.Timeout != 30*time.Second {
			t.Errorf("expected 30s timeout, got %v", cfg.Timeout)
		}
		if cfg.FailureCooldown != 500*time.Millisecond {
			t.Errorf("expected 500ms cooldown, got %v", cfg.FailureCooldown)
		}
		if len(cfg.ExcludePrefixes) != 1 || len(cfg.IncludeContains) != 1 {
			t.Errorf("expected filter lists, got %v / %v", cfg.ExcludePrefixes, cfg.IncludeContains)
		}
		if cfg.Headers["X-Test"] != "1" {
			t.Errorf("expected header X-Test, got %v", cfg.Headers)
		}
		if cfg.ProxyUser != "alice" || cfg.ProxyPassword != "secret" {
			t.Errorf("expected proxy credentials, got %q/%q", cfg.ProxyUser, cfg.ProxyPassword)
		}
		if cfg.OutputDir != "crawl-out" {
			t.Errorf("expected output dir crawl-out, got %q", cfg.OutputDir)
		}
		if cfg.ArchiveName != "" {
			t.Errorf("expected packaging disabled, got %q", cfg.ArchiveName)
		}
		if cfg.FreshOutput {
			t.Error("expected FreshOutput to be false")
		}
		if cfg.LogCompress {
			t.Error("expected LogCompress to be false")
		}
		if cfg.ReportFormat != ReportFormatMarkdown {
			t.Errorf("expected markdown, got %q", cfg.ReportFormat)
		}
		if cfg.SaveToDB {
			t.Error("expected SaveToDB to be false")
		}
	})

	t.Run("unset fields keep defaults", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(configPath, []byte("seed: http://example.com/\n"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		file, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		cfg := NewConfig()
		file.Apply(cfg)
		if cfg.MaxDepth != DefaultMaxDepth {
			t.Errorf("expected default depth, got %d", cfg.MaxDepth)
		}
		if cfg.ArchiveName != DefaultArchiveName {
			t.Errorf("expected default archive name, got %q", cfg.ArchiveName)
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(configPath, []byte(`invalid: yaml: content: [}`), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfigFile(configPath); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})
}

// TestFindConfigFile tests the FindConfigFile function.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns explicit path if exists", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(configPath, []byte("seed: http://example.com/"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if result := FindConfigFile(configPath); result != configPath {
			t.Errorf("expected %q, got %q", configPath, result)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		t.Parallel()

		if result := FindConfigFile("/nonexistent/path/config.yaml"); result != "" {
			t.Errorf("expected empty string, got %q", result)
		}
	})
}
