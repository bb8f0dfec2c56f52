package graph

import (
	"sort"
	"strings"
)

// RepoIndex is the immutable structural model of one run. It is built once by
// the Builder and shared read-only afterwards; nothing here mutates after
// construction.
type RepoIndex struct {
	ID          string    `json:"id"`
	Root        string    `json:"root"`
	ProjectName string    `json:"project_name"`
	Modules     []*Module `json:"modules"`
	Languages   []string  `json:"languages"`
	Entrypoints []string  `json:"entrypoints"`

	byID   map[string]*Module
	byPath map[string]*Module
}

// Module represents one indexed file. A changed file produces a new Module
// value with a new fingerprint on the next run; modules are never updated in
// place.
type Module struct {
	ID          string       `json:"id"`
	Path        string       `json:"path"`
	Language    string       `json:"language"`
	Fingerprint string       `json:"fingerprint"`
	SizeBytes   int64        `json:"size_bytes"`
	Oversize    bool         `json:"oversize,omitempty"`
	Symbols     []Symbol     `json:"symbols"`
	Edges       []Edge       `json:"edges"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

type Symbol struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Module    string `json:"module"` // back-reference to the owning module id
	Signature string `json:"signature,omitempty"`
	Line      int    `json:"line"`
	Exported  bool   `json:"exported"`
}

// Edge is a directed imports/calls relationship. Unresolved targets are
// retained and tagged, never dropped.
type Edge struct {
	Kind           string `json:"kind"` // imports | calls
	From           string `json:"from"` // module id
	Target         string `json:"target"`
	ResolvedTarget string `json:"resolved_target,omitempty"`
	Resolved       bool   `json:"resolved"`
	Line           int    `json:"line"`
}

type Diagnostic struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

type Stats struct {
	Files           int      `json:"files"`
	Modules         int      `json:"modules"`
	Languages       []string `json:"languages"`
	Symbols         int      `json:"symbols"`
	Edges           int      `json:"edges"`
	ResolvedEdges   int      `json:"resolved_edges"`
	UnresolvedEdges int      `json:"unresolved_edges"`
	Degraded        int      `json:"degraded"`
}

func (idx *RepoIndex) Module(id string) (*Module, bool) {
	m, ok := idx.byID[id]
	return m, ok
}

func (idx *RepoIndex) ModuleByPath(path string) (*Module, bool) {
	m, ok := idx.byPath[path]
	return m, ok
}

func (idx *RepoIndex) Stats() Stats {
	s := Stats{
		Files:     len(idx.Modules),
		Modules:   len(idx.Modules),
		Languages: append([]string(nil), idx.Languages...),
	}
	for _, m := range idx.Modules {
		s.Symbols += len(m.Symbols)
		s.Edges += len(m.Edges)
		for _, e := range m.Edges {
			if e.Resolved {
				s.ResolvedEdges++
			} else {
				s.UnresolvedEdges++
			}
		}
		if len(m.Diagnostics) > 0 {
			s.Degraded++
		}
	}
	return s
}

// ModuleID derives a stable identifier from a slash-separated relative path.
// Known source files drop their extension; everything else keeps the full
// path so unknown file kinds cannot collide with source modules.
func ModuleID(relPath, language string) string {
	if language == "" || language == "unknown" {
		return relPath
	}
	ext := extOf(relPath)
	if ext == "" {
		return relPath
	}
	return strings.TrimSuffix(relPath, ext)
}

func extOf(path string) string {
	if idx := strings.LastIndexByte(path, '.'); idx > strings.LastIndexByte(path, '/') {
		return path[idx:]
	}
	return ""
}

func sortedLanguages(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for lang := range set {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}
