// Package ports defines the service surface shared by the CLI and the MCP
// transport.
package ports

import (
	"context"

	"deeprepo/internal/engine/graph"
	"deeprepo/internal/output"
)

type IndexRequest struct {
	RepoPath   string `json:"repo_path"`
	ConfigPath string `json:"config,omitempty"`
	Refresh    bool   `json:"refresh,omitempty"`
}

type IndexResult struct {
	IndexID string      `json:"index_id"`
	Stats   graph.Stats `json:"stats"`
}

type SummarizeRequest struct {
	IndexID string `json:"index_id"`
	Scope   string `json:"scope"`  // repo | section | module | file
	Target  string `json:"target"` // module id or path; empty for repo scope
	Style   string `json:"style,omitempty"`
}

type SummarizeResult struct {
	ContentMD string            `json:"content_md"`
	Source    string            `json:"source"` // cache | strategy
	Artifacts []output.Artifact `json:"artifacts,omitempty"`
}

type SearchRequest struct {
	IndexID string `json:"index_id"`
	Query   string `json:"q"`
	Limit   int    `json:"k,omitempty"`
}

type SearchHit struct {
	Path    string  `json:"path"`
	Score   float64 `json:"score"`
	Excerpt string  `json:"excerpt"`
}

type SearchResult struct {
	Hits []SearchHit `json:"hits"`
}

// IndexService is the application behind every transport. Implementations
// must be safe for concurrent use.
type IndexService interface {
	IndexRepo(ctx context.Context, req IndexRequest) (*IndexResult, error)
	Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResult, error)
	Search(ctx context.Context, req SearchRequest) (*SearchResult, error)
	Close() error
}
