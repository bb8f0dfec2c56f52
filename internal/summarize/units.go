package summarize

import (
	"path"
	"sort"

	"deeprepo/internal/engine/graph"
	"deeprepo/internal/shared/util"
)

// Scope identifies the granularity of a summarizable unit.
type Scope string

const (
	ScopeModule  Scope = "module"
	ScopeSection Scope = "section"
	ScopeRepo    Scope = "repo"
)

// Unit is one independently summarizable piece of the index. Module units
// carry the module itself; section and repo units carry the already-computed
// summaries of their member modules, never raw source.
type Unit struct {
	ID        string
	Scope     Scope
	ContentFP string

	Module *graph.Module
	Index  *graph.RepoIndex

	// Members and MemberSummaries are populated for section and repo units.
	Members         []string
	MemberSummaries map[string]Summary
}

// ModuleUnits returns one unit per module, in index order. A module's
// content fingerprint doubles as the unit's, so an unchanged file keys the
// same cache entry across runs.
func ModuleUnits(idx *graph.RepoIndex) []Unit {
	units := make([]Unit, 0, len(idx.Modules))
	for _, m := range idx.Modules {
		units = append(units, Unit{
			ID:        m.ID,
			Scope:     ScopeModule,
			ContentFP: m.Fingerprint,
			Module:    m,
			Index:     idx,
		})
	}
	return units
}

// RollupUnits returns one section unit per top-level directory plus a single
// repo unit. Rollup fingerprints are derived from member fingerprints and
// summary availability, so a rollup is re-summarized when a member changed or
// when a member that previously had no summary now has one.
func RollupUnits(idx *graph.RepoIndex, moduleSummaries map[string]Summary) []Unit {
	sections := make(map[string][]*graph.Module)
	for _, m := range idx.Modules {
		sections[topLevelDir(m.Path)] = append(sections[topLevelDir(m.Path)], m)
	}

	names := make([]string, 0, len(sections))
	for name := range sections {
		names = append(names, name)
	}
	sort.Strings(names)

	var units []Unit
	for _, name := range names {
		members := sections[name]
		// Root-level files are covered by the repo unit; tiny directories
		// do not warrant their own rollup.
		if name == "." || len(members) < 2 {
			continue
		}
		unit := Unit{
			ID:              "section:" + name,
			Scope:           ScopeSection,
			Index:           idx,
			MemberSummaries: map[string]Summary{},
		}
		fields := []string{name}
		for _, m := range members {
			unit.Members = append(unit.Members, m.ID)
			fields = append(fields, memberField(m, moduleSummaries))
			if s, ok := moduleSummaries[m.ID]; ok {
				unit.MemberSummaries[m.ID] = s
			}
		}
		unit.ContentFP = util.FingerprintFields(fields...)
		units = append(units, unit)
	}

	repo := Unit{
		ID:              "repo",
		Scope:           ScopeRepo,
		Index:           idx,
		MemberSummaries: map[string]Summary{},
	}
	fields := make([]string, 0, len(idx.Modules)+1)
	fields = append(fields, idx.ProjectName)
	for _, m := range idx.Modules {
		repo.Members = append(repo.Members, m.ID)
		fields = append(fields, memberField(m, moduleSummaries))
		if s, ok := moduleSummaries[m.ID]; ok {
			repo.MemberSummaries[m.ID] = s
		}
	}
	repo.ContentFP = util.FingerprintFields(fields...)
	return append(units, repo)
}

// memberField keys a member into its rollup's fingerprint. A member without a
// summary changes the rollup's input even though the file did not, so it is
// keyed distinctly; the rollup regenerates once the summary appears.
func memberField(m *graph.Module, moduleSummaries map[string]Summary) string {
	if _, ok := moduleSummaries[m.ID]; ok {
		return m.Fingerprint
	}
	return m.Fingerprint + ":nosummary"
}

func topLevelDir(relPath string) string {
	dir := path.Dir(relPath)
	if dir == "." {
		return "."
	}
	for {
		parent := path.Dir(dir)
		if parent == "." {
			return dir
		}
		dir = parent
	}
}
