package walker

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"deeprepo/internal/core/errors"
	"deeprepo/internal/shared/observability"
)

// Entry is one candidate file discovered under the repository root.
// Oversize entries are retained so they still occupy a module slot downstream.
type Entry struct {
	RelPath  string
	AbsPath  string
	Size     int64
	Oversize bool
}

type Diagnostic struct {
	Code   errors.ErrorCode
	Path   string
	Detail string
}

type Listing struct {
	Root        string
	Entries     []Entry
	Diagnostics []Diagnostic
}

// Directories never descended into, regardless of user patterns.
var alwaysExcludedDirs = map[string]bool{
	".git": true,
	".hg":  true,
	".svn": true,
}

type ruleSet struct {
	baseGlobs []glob.Glob // patterns without '/' match base names
	pathGlobs []glob.Glob // patterns with '/' match slash-separated rel paths
}

func compileRules(patterns []string) (*ruleSet, error) {
	rs := &ruleSet{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.Contains(p, "/") {
			g, err := glob.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("invalid glob pattern %q: %w", p, err)
			}
			rs.baseGlobs = append(rs.baseGlobs, g)
			continue
		}
		for _, variant := range pathVariants(p) {
			g, err := glob.Compile(variant, '/')
			if err != nil {
				return nil, fmt.Errorf("invalid glob pattern %q: %w", p, err)
			}
			rs.pathGlobs = append(rs.pathGlobs, g)
		}
	}
	return rs, nil
}

func (rs *ruleSet) empty() bool {
	return len(rs.baseGlobs) == 0 && len(rs.pathGlobs) == 0
}

// pathVariants expands "**/x/**" style patterns so they also match x at the
// repository root and the directory x itself.
func pathVariants(p string) []string {
	variants := []string{p}
	if strings.HasPrefix(p, "**/") {
		variants = append(variants, strings.TrimPrefix(p, "**/"))
	}
	out := variants[:len(variants):len(variants)]
	for _, v := range variants {
		if strings.HasSuffix(v, "/**") {
			out = append(out, strings.TrimSuffix(v, "/**"))
		}
	}
	return out
}

func (rs *ruleSet) match(rel, base string) bool {
	for _, g := range rs.baseGlobs {
		if g.Match(base) {
			return true
		}
	}
	for _, g := range rs.pathGlobs {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// Walk enumerates candidate files under root in lexicographic relative-path
// order. Exclude patterns win over include patterns; an empty include set
// matches every file. Hidden and VCS directories are always pruned, but
// hidden files are subject to the normal patterns. Files beyond maxFileKB
// are kept in the listing but flagged oversize with a diagnostic. Symbolic
// links are never followed. An unreadable root aborts the walk.
func Walk(root string, include, exclude []string, maxFileKB int) (*Listing, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeFatalIO, fmt.Sprintf("resolve repository root %q", root))
	}

	includeRules, err := compileRules(include)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "compile include patterns")
	}
	excludeRules, err := compileRules(exclude)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "compile exclude patterns")
	}

	listing := &Listing{Root: absRoot}
	maxBytes := int64(maxFileKB) * 1024

	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == absRoot {
				return errors.Wrap(err, errors.CodeFatalIO, fmt.Sprintf("read repository root %q", absRoot))
			}
			// Unreadable subtrees are skipped, not fatal.
			listing.Diagnostics = append(listing.Diagnostics, Diagnostic{
				Code:   errors.CodeExtractionDegraded,
				Path:   path,
				Detail: err.Error(),
			})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(absRoot, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		base := filepath.Base(path)

		if d.IsDir() {
			if path == absRoot {
				return nil
			}
			if alwaysExcludedDirs[base] || strings.HasPrefix(base, ".") {
				return filepath.SkipDir
			}
			if excludeRules.match(rel, base) {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if excludeRules.match(rel, base) {
			return nil
		}
		if !includeRules.empty() && !includeRules.match(rel, base) {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			listing.Diagnostics = append(listing.Diagnostics, Diagnostic{
				Code:   errors.CodeExtractionDegraded,
				Path:   rel,
				Detail: infoErr.Error(),
			})
			return nil
		}

		entry := Entry{RelPath: rel, AbsPath: path, Size: info.Size()}
		if entry.Size > maxBytes {
			entry.Oversize = true
			listing.Diagnostics = append(listing.Diagnostics, Diagnostic{
				Code:   errors.CodeSkippedOversize,
				Path:   rel,
				Detail: fmt.Sprintf("%d KB exceeds limit of %d KB", entry.Size/1024, maxFileKB),
			})
		}
		listing.Entries = append(listing.Entries, entry)
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	sort.Slice(listing.Entries, func(i, j int) bool {
		return listing.Entries[i].RelPath < listing.Entries[j].RelPath
	})
	observability.FilesWalked.Add(float64(len(listing.Entries)))
	return listing, nil
}
