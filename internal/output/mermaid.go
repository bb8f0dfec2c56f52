// Package output renders index artifacts for downstream consumers.
package output

import (
	"fmt"
	"strings"

	"deeprepo/internal/engine/graph"
)

// Artifact is a generated side output attached to a summarize result.
type Artifact struct {
	Type    string `json:"type"`
	Path    string `json:"path"`
	Content string `json:"content"`
}

// ModuleGraphMermaid renders the module graph as a Mermaid `graph TD`
// document. Node ids are positional, labels are module ids; only resolved
// import edges are drawn so the diagram stays readable.
func ModuleGraphMermaid(idx *graph.RepoIndex) string {
	var b strings.Builder
	b.WriteString("graph TD\n")

	node := make(map[string]string, len(idx.Modules))
	for i, m := range idx.Modules {
		id := fmt.Sprintf("M%d", i)
		node[m.ID] = id
		fmt.Fprintf(&b, "    %s[\"%s\"]\n", id, escapeLabel(m.ID))
	}

	for _, m := range idx.Modules {
		for _, e := range m.Edges {
			if e.Kind != "imports" || !e.Resolved {
				continue
			}
			from, okFrom := node[e.From]
			to, okTo := node[e.ResolvedTarget]
			if okFrom && okTo {
				fmt.Fprintf(&b, "    %s --> %s\n", from, to)
			}
		}
	}

	return b.String()
}

// MermaidArtifact wraps the module graph in an artifact. Path is relative to
// the caller's output directory.
func MermaidArtifact(idx *graph.RepoIndex, scope string) Artifact {
	return Artifact{
		Type:    "mermaid",
		Path:    fmt.Sprintf("diagrams/module-graph-%s.mmd", scope),
		Content: ModuleGraphMermaid(idx),
	}
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, `"`, `#quot;`)
}
