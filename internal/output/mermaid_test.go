package output

import (
	"strings"
	"testing"

	"deeprepo/internal/engine/graph"
)

func TestModuleGraphMermaid(t *testing.T) {
	idx := &graph.RepoIndex{
		ID:          "idx_test",
		ProjectName: "sample",
		Modules: []*graph.Module{
			{ID: "a", Path: "a.go", Language: "go"},
			{
				ID: "b", Path: "b.go", Language: "go",
				Edges: []graph.Edge{
					{Kind: "imports", From: "b", Target: "sample/a", ResolvedTarget: "a", Resolved: true},
					{Kind: "imports", From: "b", Target: "fmt", Resolved: false},
					{Kind: "calls", From: "b", Target: "F", ResolvedTarget: "a.F", Resolved: true},
				},
			},
		},
	}

	got := ModuleGraphMermaid(idx)

	if !strings.HasPrefix(got, "graph TD\n") {
		t.Errorf("missing graph TD header:\n%s", got)
	}
	if !strings.Contains(got, `M0["a"]`) || !strings.Contains(got, `M1["b"]`) {
		t.Errorf("missing module nodes:\n%s", got)
	}
	if !strings.Contains(got, "M1 --> M0") {
		t.Errorf("missing resolved import edge:\n%s", got)
	}
	if strings.Contains(got, "fmt") {
		t.Errorf("unresolved import should not be drawn:\n%s", got)
	}
	// Call edges are not part of the module diagram.
	if strings.Count(got, "-->") != 1 {
		t.Errorf("expected exactly one edge:\n%s", got)
	}
}

func TestModuleGraphMermaidDeterministic(t *testing.T) {
	idx := &graph.RepoIndex{
		Modules: []*graph.Module{
			{ID: "x", Path: "x.go"},
			{ID: "y", Path: "y.go"},
		},
	}
	if ModuleGraphMermaid(idx) != ModuleGraphMermaid(idx) {
		t.Error("identical input must render identical output")
	}
}

func TestMermaidArtifactPath(t *testing.T) {
	idx := &graph.RepoIndex{}
	art := MermaidArtifact(idx, "repo")
	if art.Type != "mermaid" {
		t.Errorf("Type = %q", art.Type)
	}
	if art.Path != "diagrams/module-graph-repo.mmd" {
		t.Errorf("Path = %q", art.Path)
	}
}
