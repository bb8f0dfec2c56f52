package config

import (
	"os"
	"path/filepath"
	"testing"

	"deeprepo/internal/core/errors"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load with empty path failed: %v", err)
	}
	if cfg.Project.Name != "Unnamed Project" {
		t.Errorf("unexpected project name %q", cfg.Project.Name)
	}
	if cfg.Analysis.MaxFileKB != 512 {
		t.Errorf("expected default max_file_kb 512, got %d", cfg.Analysis.MaxFileKB)
	}
	if cfg.Summarize.Concurrency != 16 {
		t.Errorf("expected default concurrency 16, got %d", cfg.Summarize.Concurrency)
	}
	if !cfg.Cache.IsEnabled() {
		t.Error("cache should default to enabled")
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deeprepo.toml")
	content := `
[project]
name = "demo"
repo_path = "/tmp/demo"
include = ["src/**"]
exclude = ["**/generated/**"]

[analysis]
max_file_kb = 128
languages = ["go", "python"]

[summarize]
strategy = "generative"
model = "gemini-2.0-flash"
style = "detailed"
concurrency = 4

[cache]
enabled = false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Project.Name != "demo" {
		t.Errorf("unexpected name %q", cfg.Project.Name)
	}
	if cfg.Summarize.Concurrency != 4 {
		t.Errorf("expected concurrency 4, got %d", cfg.Summarize.Concurrency)
	}
	if cfg.Cache.IsEnabled() {
		t.Error("explicit enabled = false must disable the cache")
	}
	if !cfg.LanguageEnabled("go") || cfg.LanguageEnabled("rust") {
		t.Error("language filter not applied")
	}
}

func TestLoad_InvalidStrategy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deeprepo.toml")
	if err := os.WriteFile(path, []byte("[summarize]\nstrategy = \"magic\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if !errors.IsCode(err, errors.CodeValidationError) {
		t.Errorf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("missing config file should fall back to defaults: %v", err)
	}
	if cfg.Summarize.Strategy != "heuristic" {
		t.Errorf("expected heuristic default, got %q", cfg.Summarize.Strategy)
	}
}

func TestFingerprint_TracksSummarizerFields(t *testing.T) {
	a, _ := Load("")
	b, _ := Load("")
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("identical configs must share a fingerprint")
	}
	b.Summarize.Style = "detailed"
	if a.Fingerprint() == b.Fingerprint() {
		t.Error("style change must change the fingerprint")
	}
	b.Summarize.Style = a.Summarize.Style
	b.Project.Name = "other"
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("non-summarizer fields must not affect the fingerprint")
	}
}
