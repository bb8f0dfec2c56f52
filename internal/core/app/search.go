package app

import (
	"context"
	"sort"
	"strings"

	domerr "deeprepo/internal/core/errors"
	"deeprepo/internal/core/ports"
)

const (
	defaultSearchLimit = 20
	excerptRadius      = 50
)

// Search runs a case-insensitive substring query over the retained file
// contents of a run. Scoring is word-frequency based; ties break by path so
// identical queries return identical orderings.
func (a *App) Search(_ context.Context, req ports.SearchRequest) (*ports.SearchResult, error) {
	sess, err := a.session(req.IndexID)
	if err != nil {
		return nil, err
	}
	query := strings.ToLower(strings.TrimSpace(req.Query))
	if query == "" {
		return nil, domerr.New(domerr.CodeValidationError, "search query must not be empty")
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	var hits []ports.SearchHit
	for path, content := range sess.contents {
		lower := strings.ToLower(content)
		if !strings.Contains(lower, query) {
			continue
		}
		hits = append(hits, ports.SearchHit{
			Path:    path,
			Score:   scoreContent(lower, query),
			Excerpt: extractExcerpt(content, lower, query),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Path < hits[j].Path
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}

	return &ports.SearchResult{Hits: hits}, nil
}

func scoreContent(lower, query string) float64 {
	words := strings.Fields(query)
	var score float64
	for _, w := range words {
		score += float64(strings.Count(lower, w))
	}
	return score / (float64(len(words)) + 1)
}

// extractExcerpt returns the text surrounding the first match, clamped to
// rune boundaries so multi-byte content never splits mid-character.
func extractExcerpt(content, lower, query string) string {
	pos := strings.Index(lower, query)
	if pos < 0 {
		if len(content) > 2*excerptRadius {
			return content[:clampToRune(content, 2*excerptRadius)] + "..."
		}
		return content
	}

	start := pos - excerptRadius
	if start < 0 {
		start = 0
	}
	end := pos + len(query) + excerptRadius
	if end > len(content) {
		end = len(content)
	}
	start = clampToRune(content, start)
	end = clampToRune(content, end)
	return "..." + content[start:end] + "..."
}

func clampToRune(s string, i int) int {
	for i > 0 && i < len(s) && !isRuneStart(s[i]) {
		i--
	}
	return i
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
