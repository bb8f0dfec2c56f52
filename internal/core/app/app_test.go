package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"deeprepo/internal/core/config"
	domerr "deeprepo/internal/core/errors"
	"deeprepo/internal/core/ports"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func testRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n\nimport \"sample/engine/core\"\n\nfunc main() {\n\tcore.Run()\n}\n")
	writeFile(t, root, "engine/core.go", "package engine\n\nfunc Run() {}\n\nfunc helper() {}\n")
	writeFile(t, root, "engine/extra.go", "package engine\n\nconst Version = \"1.0\"\n")
	writeFile(t, root, "docs/notes.txt", "indexing pipeline design notes\n")
	return root
}

func testApp(t *testing.T, root string) *App {
	t.Helper()
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.Project.Name = "sample"
	cfg.Project.RepoPath = root
	cfg.Cache.Path = filepath.Join(t.TempDir(), "cache.db")
	cfg.Summarize.Concurrency = 4

	a, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestIndexRepoEndToEnd(t *testing.T) {
	root := testRepo(t)
	a := testApp(t, root)

	result, err := a.IndexRepo(context.Background(), ports.IndexRequest{RepoPath: root})
	if err != nil {
		t.Fatalf("IndexRepo failed: %v", err)
	}
	if !strings.HasPrefix(result.IndexID, "idx_") {
		t.Errorf("IndexID = %q, want idx_ prefix", result.IndexID)
	}
	if result.Stats.Files != 4 {
		t.Errorf("Stats.Files = %d, want 4", result.Stats.Files)
	}
	if len(result.Stats.Languages) != 1 || result.Stats.Languages[0] != "go" {
		t.Errorf("Stats.Languages = %v", result.Stats.Languages)
	}

	idx, err := a.Index(result.IndexID)
	if err != nil {
		t.Fatalf("Index lookup failed: %v", err)
	}
	core, ok := idx.Module("engine/core")
	if !ok {
		t.Fatal("module engine/core missing")
	}
	if len(core.Symbols) != 2 {
		t.Errorf("engine/core symbols = %d, want 2", len(core.Symbols))
	}
	if len(idx.Entrypoints) != 1 || idx.Entrypoints[0] != "main.go" {
		t.Errorf("Entrypoints = %v", idx.Entrypoints)
	}
}

func TestSummarizeScopes(t *testing.T) {
	root := testRepo(t)
	a := testApp(t, root)

	result, err := a.IndexRepo(context.Background(), ports.IndexRequest{RepoPath: root})
	if err != nil {
		t.Fatalf("IndexRepo failed: %v", err)
	}

	repo, err := a.Summarize(context.Background(), ports.SummarizeRequest{
		IndexID: result.IndexID, Scope: "repo",
	})
	if err != nil {
		t.Fatalf("repo summarize failed: %v", err)
	}
	if !strings.Contains(repo.ContentMD, "sample") {
		t.Errorf("repo summary missing project name:\n%s", repo.ContentMD)
	}
	if len(repo.Artifacts) != 1 || repo.Artifacts[0].Type != "mermaid" {
		t.Errorf("repo summarize artifacts = %+v", repo.Artifacts)
	}
	if !strings.HasPrefix(repo.Artifacts[0].Content, "graph TD") {
		t.Errorf("artifact content:\n%s", repo.Artifacts[0].Content)
	}

	section, err := a.Summarize(context.Background(), ports.SummarizeRequest{
		IndexID: result.IndexID, Scope: "section", Target: "engine",
	})
	if err != nil {
		t.Fatalf("section summarize failed: %v", err)
	}
	if !strings.Contains(section.ContentMD, "engine") {
		t.Errorf("section summary:\n%s", section.ContentMD)
	}

	module, err := a.Summarize(context.Background(), ports.SummarizeRequest{
		IndexID: result.IndexID, Scope: "module", Target: "engine/core",
	})
	if err != nil {
		t.Fatalf("module summarize failed: %v", err)
	}
	if !strings.Contains(module.ContentMD, "## Role") {
		t.Errorf("module summary:\n%s", module.ContentMD)
	}

	file, err := a.Summarize(context.Background(), ports.SummarizeRequest{
		IndexID: result.IndexID, Scope: "file", Target: "engine/core.go",
	})
	if err != nil {
		t.Fatalf("file summarize failed: %v", err)
	}
	if file.ContentMD == "" {
		t.Error("file summary empty")
	}
}

func TestSummarizeHonorsSessionConfig(t *testing.T) {
	root := testRepo(t)
	a := testApp(t, root)

	cfgPath := filepath.Join(t.TempDir(), "override.toml")
	writeFile(t, filepath.Dir(cfgPath), filepath.Base(cfgPath),
		"[project]\nname = \"sample\"\n\n[summarize]\nstyle = \"detailed\"\n")

	result, err := a.IndexRepo(context.Background(), ports.IndexRequest{
		RepoPath: root, ConfigPath: cfgPath,
	})
	if err != nil {
		t.Fatalf("IndexRepo failed: %v", err)
	}

	// No requested style: the session's own style applies, not the
	// process-wide one.
	detailed, err := a.Summarize(context.Background(), ports.SummarizeRequest{
		IndexID: result.IndexID, Scope: "repo",
	})
	if err != nil {
		t.Fatalf("repo summarize failed: %v", err)
	}
	if !strings.Contains(detailed.ContentMD, "## Purpose") {
		t.Errorf("session indexed as detailed, got:\n%s", detailed.ContentMD)
	}

	// A style differing from the session's must re-resolve, never serve the
	// stored outcome.
	concise, err := a.Summarize(context.Background(), ports.SummarizeRequest{
		IndexID: result.IndexID, Scope: "repo", Style: "concise",
	})
	if err != nil {
		t.Fatalf("concise summarize failed: %v", err)
	}
	if strings.Contains(concise.ContentMD, "## Purpose") {
		t.Errorf("explicit concise request served the detailed summary:\n%s", concise.ContentMD)
	}
}

func TestSummarizeUnknownIndex(t *testing.T) {
	a := testApp(t, testRepo(t))

	_, err := a.Summarize(context.Background(), ports.SummarizeRequest{
		IndexID: "idx_missing", Scope: "repo",
	})
	if !domerr.IsCode(err, domerr.CodeNotFound) {
		t.Errorf("err = %v, want NOT_FOUND", err)
	}
}

func TestSummarizeUnknownModule(t *testing.T) {
	root := testRepo(t)
	a := testApp(t, root)
	result, err := a.IndexRepo(context.Background(), ports.IndexRequest{RepoPath: root})
	if err != nil {
		t.Fatalf("IndexRepo failed: %v", err)
	}

	_, err = a.Summarize(context.Background(), ports.SummarizeRequest{
		IndexID: result.IndexID, Scope: "module", Target: "does/not/exist",
	})
	if !domerr.IsCode(err, domerr.CodeNotFound) {
		t.Errorf("err = %v, want NOT_FOUND", err)
	}
}

func TestSearchRankedHits(t *testing.T) {
	root := testRepo(t)
	a := testApp(t, root)
	result, err := a.IndexRepo(context.Background(), ports.IndexRequest{RepoPath: root})
	if err != nil {
		t.Fatalf("IndexRepo failed: %v", err)
	}

	search, err := a.Search(context.Background(), ports.SearchRequest{
		IndexID: result.IndexID, Query: "engine",
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(search.Hits) == 0 {
		t.Fatal("expected hits for engine")
	}
	for _, h := range search.Hits {
		if h.Excerpt == "" {
			t.Errorf("hit %s has empty excerpt", h.Path)
		}
		if h.Score <= 0 {
			t.Errorf("hit %s has score %f", h.Path, h.Score)
		}
	}

	again, err := a.Search(context.Background(), ports.SearchRequest{
		IndexID: result.IndexID, Query: "engine",
	})
	if err != nil {
		t.Fatalf("second Search failed: %v", err)
	}
	for i := range search.Hits {
		if search.Hits[i].Path != again.Hits[i].Path {
			t.Fatal("search ordering not deterministic")
		}
	}

	if _, err := a.Search(context.Background(), ports.SearchRequest{
		IndexID: result.IndexID, Query: "   ",
	}); !domerr.IsCode(err, domerr.CodeValidationError) {
		t.Errorf("blank query err = %v, want VALIDATION_ERROR", err)
	}
}

func TestOversizeFileKeptAsEmptyModule(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "small.go", "package small\n\nfunc A() {}\n")
	writeFile(t, root, "huge.go", "package huge\n\n//"+strings.Repeat("x", 2048)+"\n")

	a := testApp(t, root)
	a.cfg.Analysis.MaxFileKB = 1

	result, err := a.IndexRepo(context.Background(), ports.IndexRequest{RepoPath: root})
	if err != nil {
		t.Fatalf("IndexRepo failed: %v", err)
	}

	idx, err := a.Index(result.IndexID)
	if err != nil {
		t.Fatalf("Index lookup failed: %v", err)
	}
	huge, ok := idx.ModuleByPath("huge.go")
	if !ok {
		t.Fatal("oversize file should keep its module slot")
	}
	if !huge.Oversize || len(huge.Symbols) != 0 {
		t.Errorf("oversize module: oversize=%v symbols=%d", huge.Oversize, len(huge.Symbols))
	}
	found := false
	for _, d := range huge.Diagnostics {
		if d.Code == string(domerr.CodeSkippedOversize) {
			found = true
		}
	}
	if !found {
		t.Errorf("missing oversize diagnostic: %+v", huge.Diagnostics)
	}
}

func TestSecondRunServedFromCache(t *testing.T) {
	root := testRepo(t)
	a := testApp(t, root)

	if _, err := a.IndexRepo(context.Background(), ports.IndexRequest{RepoPath: root}); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, err := a.IndexRepo(context.Background(), ports.IndexRequest{RepoPath: root})
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	repo, err := a.Summarize(context.Background(), ports.SummarizeRequest{
		IndexID: second.IndexID, Scope: "repo",
	})
	if err != nil {
		t.Fatalf("summarize failed: %v", err)
	}
	if repo.Source != "cache" {
		t.Errorf("second run repo summary source = %q, want cache", repo.Source)
	}
}
