package graph

import (
	"path"
	"sort"
	"strings"

	"deeprepo/internal/engine/parser"
	"deeprepo/internal/shared/observability"
)

// Input is one walked file with its parse record. Records arrive in walker
// order (lexicographic by relative path), which fixes all output ordering.
type Input struct {
	RelPath     string
	Language    string
	Fingerprint string
	SizeBytes   int64
	Oversize    bool
	Record      *parser.Record // nil for unknown, oversize or unreadable files
	Diagnostics []Diagnostic
}

// Build aggregates parse records into one RepoIndex. Given the same ordered
// input it produces an identical graph: module order follows input order,
// symbol and edge order follows declaration order, and resolution ties break
// lexicographically.
func Build(id, root, projectName string, inputs []Input, entrypointHints []string) *RepoIndex {
	idx := &RepoIndex{
		ID:          id,
		Root:        root,
		ProjectName: projectName,
		byID:        make(map[string]*Module, len(inputs)),
		byPath:      make(map[string]*Module, len(inputs)),
	}

	languages := make(map[string]bool)

	for _, in := range inputs {
		moduleID := ModuleID(in.RelPath, in.Language)
		if _, taken := idx.byID[moduleID]; taken {
			// Extension-stripped ids can collide across languages (a.go vs
			// a.py); the later file keeps its full path as id.
			moduleID = in.RelPath
		}

		m := &Module{
			ID:          moduleID,
			Path:        in.RelPath,
			Language:    in.Language,
			Fingerprint: in.Fingerprint,
			SizeBytes:   in.SizeBytes,
			Oversize:    in.Oversize,
			Symbols:     []Symbol{},
			Edges:       []Edge{},
			Diagnostics: in.Diagnostics,
		}

		if in.Record != nil {
			for _, s := range in.Record.Symbols {
				m.Symbols = append(m.Symbols, Symbol{
					Name:      s.Name,
					Kind:      s.Kind.String(),
					Module:    moduleID,
					Signature: s.Signature,
					Line:      s.Line,
					Exported:  s.Exported,
				})
			}
			for _, e := range in.Record.Edges {
				m.Edges = append(m.Edges, Edge{
					Kind:   e.Kind.String(),
					From:   moduleID,
					Target: e.Target,
					Line:   e.Line,
				})
			}
			for _, d := range in.Record.Diagnostics {
				m.Diagnostics = append(m.Diagnostics, Diagnostic{
					Code:   "EXTRACTION_DEGRADED",
					Detail: d,
				})
			}
		}

		idx.Modules = append(idx.Modules, m)
		idx.byID[m.ID] = m
		idx.byPath[m.Path] = m
		if in.Language != "" && in.Language != parser.LanguageUnknown {
			languages[in.Language] = true
		}
	}

	idx.Languages = sortedLanguages(languages)
	resolveEdges(idx)
	idx.Entrypoints = inferEntrypoints(idx, entrypointHints)

	stats := idx.Stats()
	observability.GraphModules.Set(float64(stats.Modules))
	observability.GraphEdges.Set(float64(stats.Edges))
	return idx
}

// resolveEdges matches edge targets against known module and symbol
// identifiers. Unmatched targets stay as tagged dangling edges.
func resolveEdges(idx *RepoIndex) {
	symbolOwners := buildSymbolIndex(idx)

	for _, m := range idx.Modules {
		for i := range m.Edges {
			e := &m.Edges[i]
			switch e.Kind {
			case "imports":
				if target, ok := resolveImport(idx, m, e.Target); ok {
					e.ResolvedTarget = target
					e.Resolved = true
				}
			case "calls":
				if target, ok := resolveCall(idx, symbolOwners, m, e.Target); ok {
					e.ResolvedTarget = target
					e.Resolved = true
				}
			}
		}
	}
}

// buildSymbolIndex maps bare symbol names to the sorted ids of modules
// declaring them.
func buildSymbolIndex(idx *RepoIndex) map[string][]string {
	owners := make(map[string][]string)
	for _, m := range idx.Modules {
		for _, s := range m.Symbols {
			owners[s.Name] = append(owners[s.Name], m.ID)
		}
	}
	for name := range owners {
		sort.Strings(owners[name])
	}
	return owners
}

func resolveImport(idx *RepoIndex, from *Module, target string) (string, bool) {
	candidates := importCandidates(from, target)
	for _, c := range candidates {
		if m, ok := idx.byID[c]; ok {
			return m.ID, true
		}
		if m, ok := idx.byPath[c]; ok {
			return m.ID, true
		}
	}

	// Fall back to basename match, ties broken lexicographically.
	base := basenameOf(target)
	base = strings.TrimSuffix(base, extOf(base))
	if base == "" {
		return "", false
	}
	var matches []string
	for _, m := range idx.Modules {
		if basenameOf(m.ID) == base {
			matches = append(matches, m.ID)
		}
	}
	if len(matches) > 0 {
		sort.Strings(matches)
		return matches[0], true
	}
	return "", false
}

func importCandidates(from *Module, target string) []string {
	target = strings.TrimSpace(target)
	var out []string

	if strings.HasPrefix(target, ".") && strings.ContainsAny(target, "/") {
		// Relative javascript-style import: resolve against the source dir.
		joined := path.Clean(path.Join(path.Dir(from.Path), target))
		out = append(out, joined, joined+extOf(from.Path))
	} else if strings.HasPrefix(target, ".") {
		// Python relative import: strip leading dots within the package dir.
		trimmed := strings.TrimLeft(target, ".")
		if trimmed != "" {
			out = append(out, path.Join(path.Dir(from.Path), strings.ReplaceAll(trimmed, ".", "/")))
		}
	}

	out = append(out, target)
	if strings.Contains(target, ".") && !strings.Contains(target, "/") {
		out = append(out, strings.ReplaceAll(target, ".", "/"))
	}
	return out
}

func resolveCall(idx *RepoIndex, owners map[string][]string, from *Module, target string) (string, bool) {
	name := target
	var qualifier string
	if i := strings.LastIndexByte(target, '.'); i >= 0 {
		qualifier = target[:i]
		name = target[i+1:]
	}

	ids, ok := owners[name]
	if !ok || len(ids) == 0 {
		return "", false
	}

	// A qualified call prefers a module matching the qualifier.
	if qualifier != "" {
		for _, id := range ids {
			if id == qualifier || basenameOf(id) == qualifier || strings.HasSuffix(id, "/"+qualifier) {
				return id + "." + name, true
			}
		}
	}

	// Same-module calls resolve locally.
	for _, id := range ids {
		if id == from.ID {
			return id + "." + name, true
		}
	}

	if qualifier != "" {
		// Qualified call whose qualifier is no known module: likely an
		// external receiver; leave it dangling rather than guess.
		return "", false
	}
	return ids[0] + "." + name, true
}

func basenameOf(id string) string {
	if i := strings.LastIndexByte(id, '/'); i >= 0 {
		return id[i+1:]
	}
	return id
}

// Well-known entrypoint file patterns, checked against module paths.
var entrypointBases = []string{
	"main.go", "main.py", "__main__.py", "main.js", "index.js", "main.rs", "main.ts", "index.ts",
}

func inferEntrypoints(idx *RepoIndex, hints []string) []string {
	seen := make(map[string]bool)
	var out []string

	add := func(p string) {
		if p == "" || seen[p] {
			return
		}
		if _, ok := idx.byPath[p]; !ok {
			return
		}
		seen[p] = true
		out = append(out, p)
	}

	for _, h := range hints {
		add(strings.TrimPrefix(h, "./"))
	}
	for _, m := range idx.Modules {
		base := basenameOf(m.Path)
		for _, wanted := range entrypointBases {
			if base == wanted {
				add(m.Path)
			}
		}
	}
	return out
}
