package graph

import (
	"encoding/json"
	"testing"

	"deeprepo/internal/engine/parser"
)

func buildFixture() *RepoIndex {
	inputs := []Input{
		{
			RelPath:     "a.go",
			Language:    "go",
			Fingerprint: "fp-a",
			Record: &parser.Record{
				Symbols: []parser.SymbolDecl{
					{Name: "F", Kind: parser.KindFunction, Exported: true, Line: 3},
				},
			},
		},
		{
			RelPath:     "b.go",
			Language:    "go",
			Fingerprint: "fp-b",
			Record: &parser.Record{
				Edges: []parser.EdgeDecl{
					{Kind: parser.EdgeImport, Target: "sample/a", Line: 3},
					{Kind: parser.EdgeCall, Target: "F", Line: 7},
				},
			},
		},
		{
			RelPath:     "c.txt",
			Language:    "unknown",
			Fingerprint: "fp-c",
		},
	}
	return Build("idx_test", "/repo", "sample", inputs, nil)
}

func TestBuild_ThreeFileScenario(t *testing.T) {
	idx := buildFixture()

	if len(idx.Modules) != 3 {
		t.Fatalf("expected 3 modules, got %d", len(idx.Modules))
	}

	b, ok := idx.Module("b")
	if !ok {
		t.Fatal("module b missing")
	}

	var call *Edge
	for i := range b.Edges {
		if b.Edges[i].Kind == "calls" {
			call = &b.Edges[i]
		}
	}
	if call == nil {
		t.Fatal("expected a call edge on b")
	}
	if !call.Resolved || call.ResolvedTarget != "a.F" {
		t.Errorf("expected resolved call edge a.F, got %+v", call)
	}

	var imp *Edge
	for i := range b.Edges {
		if b.Edges[i].Kind == "imports" {
			imp = &b.Edges[i]
		}
	}
	if imp == nil || !imp.Resolved || imp.ResolvedTarget != "a" {
		t.Errorf("expected resolved import edge to a, got %+v", imp)
	}

	c, ok := idx.ModuleByPath("c.txt")
	if !ok {
		t.Fatal("unknown-language file must still occupy a module slot")
	}
	if len(c.Symbols) != 0 || len(c.Edges) != 0 {
		t.Error("unknown-language module must have empty symbol and edge sets")
	}
	if c.ID != "c.txt" {
		t.Errorf("unknown files keep the full path as id, got %q", c.ID)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	first, _ := json.Marshal(buildFixture())
	second, _ := json.Marshal(buildFixture())
	if string(first) != string(second) {
		t.Error("identical inputs must serialize to byte-identical graphs")
	}
}

func TestBuild_UnresolvedEdgesRetained(t *testing.T) {
	inputs := []Input{
		{
			RelPath:  "solo.go",
			Language: "go",
			Record: &parser.Record{
				Edges: []parser.EdgeDecl{
					{Kind: parser.EdgeImport, Target: "fmt"},
					{Kind: parser.EdgeCall, Target: "外部.Missing"},
				},
			},
		},
	}
	idx := Build("idx", "/r", "p", inputs, nil)

	m := idx.Modules[0]
	if len(m.Edges) != 2 {
		t.Fatalf("dangling edges must be retained, got %d", len(m.Edges))
	}
	for _, e := range m.Edges {
		if e.Resolved {
			t.Errorf("edge %+v should be unresolved", e)
		}
	}
	stats := idx.Stats()
	if stats.UnresolvedEdges != 2 {
		t.Errorf("expected 2 unresolved edges in stats, got %d", stats.UnresolvedEdges)
	}
}

func TestBuild_OversizeModuleEmpty(t *testing.T) {
	inputs := []Input{
		{
			RelPath:     "big.go",
			Language:    "go",
			Oversize:    true,
			Diagnostics: []Diagnostic{{Code: "SKIPPED_OVERSIZE", Detail: "2048 KB exceeds limit"}},
		},
	}
	idx := Build("idx", "/r", "p", inputs, nil)

	m := idx.Modules[0]
	if !m.Oversize || len(m.Symbols) != 0 {
		t.Error("oversize module must be flagged and empty")
	}
	if len(m.Diagnostics) != 1 || m.Diagnostics[0].Code != "SKIPPED_OVERSIZE" {
		t.Errorf("expected SKIPPED_OVERSIZE diagnostic, got %+v", m.Diagnostics)
	}
}

func TestBuild_IDCollisionKeepsFullPath(t *testing.T) {
	inputs := []Input{
		{RelPath: "a.go", Language: "go", Record: &parser.Record{}},
		{RelPath: "a.py", Language: "python", Record: &parser.Record{}},
	}
	idx := Build("idx", "/r", "p", inputs, nil)

	if idx.Modules[0].ID != "a" {
		t.Errorf("first module keeps the stripped id, got %q", idx.Modules[0].ID)
	}
	if idx.Modules[1].ID != "a.py" {
		t.Errorf("colliding module must keep its full path, got %q", idx.Modules[1].ID)
	}
}

func TestInferEntrypoints(t *testing.T) {
	inputs := []Input{
		{RelPath: "cmd/tool/main.go", Language: "go", Record: &parser.Record{}},
		{RelPath: "lib/helper.go", Language: "go", Record: &parser.Record{}},
		{RelPath: "scripts/run.py", Language: "python", Record: &parser.Record{}},
	}
	idx := Build("idx", "/r", "p", inputs, []string{"scripts/run.py", "does/not/exist.go"})

	want := map[string]bool{"cmd/tool/main.go": true, "scripts/run.py": true}
	if len(idx.Entrypoints) != len(want) {
		t.Fatalf("unexpected entrypoints %v", idx.Entrypoints)
	}
	for _, ep := range idx.Entrypoints {
		if !want[ep] {
			t.Errorf("unexpected entrypoint %q", ep)
		}
	}
}
