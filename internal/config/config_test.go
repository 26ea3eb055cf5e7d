package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := parse([]byte(""))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("expected default port 8000, got %d", cfg.Server.Port)
	}
	if cfg.History.Max != 20 {
		t.Errorf("expected default history cap 20, got %d", cfg.History.Max)
	}
	if !cfg.Sources.Proxy.Enabled {
		t.Error("expected proxy source enabled by default")
	}
	if cfg.Scoring.Provider != "ollama" {
		t.Errorf("expected default provider ollama, got %s", cfg.Scoring.Provider)
	}
}

func TestParseOverrides(t *testing.T) {
	yaml := `
server:
  port: 9001
sources:
  news:
    enabled: false
history:
  max: 5
`
	cfg, err := parse([]byte(yaml))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cfg.Server.Port != 9001 {
		t.Errorf("expected port 9001, got %d", cfg.Server.Port)
	}
	if cfg.Sources.News.Enabled {
		t.Error("expected news source disabled")
	}
	if cfg.History.Max != 5 {
		t.Errorf("expected history cap 5, got %d", cfg.History.Max)
	}
}

func TestDefaultConfigYAMLParses(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("embedded default config does not parse: %v", err)
	}
	if cfg.CountryCode("Moldova") != "MD" {
		t.Errorf("expected MD for Moldova, got %s", cfg.CountryCode("Moldova"))
	}
}

func TestCountryCodeFallback(t *testing.T) {
	cfg, _ := parse([]byte(""))
	if got := cfg.CountryCode("Atlantis"); got != "US" {
		t.Errorf("expected US fallback for unknown country, got %s", got)
	}
	if got := cfg.CountryCode("United Kingdom"); got != "GB" {
		t.Errorf("expected GB, got %s", got)
	}
}

func TestResolveConfigPathExplicit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 1234\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	resolved, err := ResolveConfigPath(path)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved != path {
		t.Errorf("expected %s, got %s", path, resolved)
	}

	if _, err := ResolveConfigPath(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}
