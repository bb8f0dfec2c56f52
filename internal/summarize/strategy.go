package summarize

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	domerr "deeprepo/internal/core/errors"
	"deeprepo/internal/engine/graph"
	"deeprepo/internal/shared/util"
)

// Summary is the output of one strategy invocation.
type Summary struct {
	Headline string `json:"headline"`
	Body     string `json:"body"`
}

// Strategy turns a unit's structural content into a summary. Implementations
// must be safe for concurrent use; the pool calls Summarize from multiple
// goroutines.
type Strategy interface {
	Name() string
	// Fingerprint captures every input that changes the output for identical
	// structural content. It is part of the cache key.
	Fingerprint() string
	Summarize(ctx context.Context, unit Unit) (Summary, error)
}

const (
	StyleConcise  = "concise"
	StyleDetailed = "detailed"
)

// HeuristicStrategy synthesizes summaries from the structural graph alone,
// without any external calls. It is the offline default.
type HeuristicStrategy struct {
	style string
}

func NewHeuristicStrategy(style string) *HeuristicStrategy {
	if style == "" {
		style = StyleConcise
	}
	return &HeuristicStrategy{style: style}
}

func (h *HeuristicStrategy) Name() string { return "heuristic" }

func (h *HeuristicStrategy) Fingerprint() string {
	return util.FingerprintFields("heuristic", h.style)
}

func (h *HeuristicStrategy) Summarize(_ context.Context, unit Unit) (Summary, error) {
	switch unit.Scope {
	case ScopeModule:
		return h.summarizeModule(unit), nil
	case ScopeSection:
		return h.summarizeSection(unit), nil
	case ScopeRepo:
		return h.summarizeRepo(unit), nil
	default:
		return Summary{}, domerr.New(domerr.CodeValidationError,
			fmt.Sprintf("unknown unit scope %q", unit.Scope))
	}
}

func (h *HeuristicStrategy) summarizeModule(unit Unit) Summary {
	m := unit.Module

	var b strings.Builder
	fmt.Fprintf(&b, "## Role\n\n%s\n", inferRole(m))

	if exported := exportedSymbols(m); len(exported) > 0 {
		b.WriteString("\n## Exported API\n\n")
		for _, s := range exported {
			if s.Signature != "" {
				fmt.Fprintf(&b, "- `%s` (%s): `%s`\n", s.Name, s.Kind, s.Signature)
			} else {
				fmt.Fprintf(&b, "- `%s` (%s)\n", s.Name, s.Kind)
			}
		}
	}

	if imports := importTargets(m); len(imports) > 0 {
		b.WriteString("\n## Dependencies\n\n")
		for _, imp := range imports {
			fmt.Fprintf(&b, "- `%s`\n", imp)
		}
	}

	if h.style == StyleDetailed {
		if notes := inferNotes(m); len(notes) > 0 {
			b.WriteString("\n## Notes\n\n")
			for _, n := range notes {
				fmt.Fprintf(&b, "- %s\n", n)
			}
		}
	}

	return Summary{Headline: inferRole(m), Body: b.String()}
}

func (h *HeuristicStrategy) summarizeSection(unit Unit) Summary {
	name := strings.TrimPrefix(unit.ID, "section:")
	headline := fmt.Sprintf("Section %s with %d modules.", name, len(unit.Members))

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n%s\n\n## Modules\n\n", name, headline)
	for _, id := range unit.Members {
		if s, ok := unit.MemberSummaries[id]; ok && s.Headline != "" {
			fmt.Fprintf(&b, "- `%s`: %s\n", id, s.Headline)
		} else {
			fmt.Fprintf(&b, "- `%s`\n", id)
		}
	}
	return Summary{Headline: headline, Body: b.String()}
}

func (h *HeuristicStrategy) summarizeRepo(unit Unit) Summary {
	idx := unit.Index
	stats := idx.Stats()
	headline := fmt.Sprintf("%s: %d files, %d languages, %d modules.",
		idx.ProjectName, stats.Files, len(stats.Languages), stats.Modules)

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n%s\n", idx.ProjectName, headline)

	if h.style == StyleDetailed {
		fmt.Fprintf(&b, "\n## Purpose\n\n%s\n", inferPurpose(idx))
	}

	b.WriteString("\n## Components\n\n")
	for _, id := range unit.Members {
		if s, ok := unit.MemberSummaries[id]; ok && s.Headline != "" {
			fmt.Fprintf(&b, "- `%s`: %s\n", id, s.Headline)
		} else {
			fmt.Fprintf(&b, "- `%s`\n", id)
		}
	}

	if len(idx.Entrypoints) > 0 {
		b.WriteString("\n## Entrypoints\n\n")
		for _, ep := range idx.Entrypoints {
			fmt.Fprintf(&b, "- `%s`\n", ep)
		}
	}

	return Summary{Headline: headline, Body: b.String()}
}

// inferRole classifies a module by filename keywords, falling back to its
// language.
func inferRole(m *graph.Module) string {
	base := strings.ToLower(strings.TrimSuffix(path.Base(m.Path), path.Ext(m.Path)))
	switch {
	case strings.Contains(base, "_test") || strings.HasPrefix(base, "test_"):
		return "Test module."
	case strings.Contains(base, "config") || strings.Contains(base, "setting"):
		return "Configuration management module."
	case strings.Contains(base, "api") || strings.Contains(base, "route") || strings.Contains(base, "handler"):
		return "API endpoint or routing module."
	case strings.Contains(base, "util") || strings.Contains(base, "helper"):
		return "Utility functions module."
	case strings.Contains(base, "model") || strings.Contains(base, "schema"):
		return "Data model or schema definition module."
	case strings.Contains(base, "service") || strings.Contains(base, "business"):
		return "Business logic module."
	case base == "main" || base == "index" || base == "__main__":
		return "Application entrypoint."
	default:
		if m.Language == "unknown" {
			return "Unclassified file."
		}
		return fmt.Sprintf("Module written in %s.", m.Language)
	}
}

func inferNotes(m *graph.Module) []string {
	var notes []string
	if m.Oversize {
		notes = append(notes, "File exceeded the size limit; structure was not extracted.")
	}
	if m.SizeBytes > 10_000 {
		notes = append(notes, "Large file; consider splitting it.")
	}
	if len(importTargets(m)) > 20 {
		notes = append(notes, "High number of dependencies; coupling may be high.")
	}
	for _, d := range m.Diagnostics {
		notes = append(notes, fmt.Sprintf("%s: %s", d.Code, d.Detail))
	}
	return notes
}

func inferPurpose(idx *graph.RepoIndex) string {
	var purposes []string
	for _, m := range idx.Modules {
		base := strings.ToLower(path.Base(m.Path))
		if strings.Contains(base, "main") || strings.Contains(base, "server") || strings.Contains(base, "app") {
			purposes = append(purposes, "Likely runs as an application or server.")
			break
		}
	}
	for _, m := range idx.Modules {
		for _, imp := range importTargets(m) {
			switch {
			case strings.Contains(imp, "express"), strings.Contains(imp, "fastapi"), strings.Contains(imp, "flask"):
				purposes = append(purposes, "Web application or API server.")
			case strings.Contains(imp, "react"), strings.Contains(imp, "vue"):
				purposes = append(purposes, "Frontend application.")
			}
		}
	}
	if len(purposes) == 0 {
		return "Further analysis is needed to determine the purpose of this codebase."
	}
	sort.Strings(purposes)
	return strings.Join(dedupe(purposes), " ")
}

func exportedSymbols(m *graph.Module) []graph.Symbol {
	var out []graph.Symbol
	for _, s := range m.Symbols {
		if s.Exported {
			out = append(out, s)
		}
	}
	return out
}

func importTargets(m *graph.Module) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range m.Edges {
		if e.Kind == "imports" && !seen[e.Target] {
			seen[e.Target] = true
			out = append(out, e.Target)
		}
	}
	return out
}

func dedupe(in []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
