package mcp

// ToolDefinition describes one callable tool for tools/list.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

func BuildToolDefinitions() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        "index_repo",
			Description: "Walk a repository, extract its structural graph and summarize it. Returns an index id for follow-up calls.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"repo_path": map[string]any{"type": "string", "description": "Repository root to index."},
					"config":    map[string]any{"type": "string", "description": "Optional config file overriding the server defaults."},
					"refresh":   map[string]any{"type": "boolean"},
				},
				"required": []string{"repo_path"},
			},
		},
		{
			Name:        "summarize",
			Description: "Render the summary of one unit of a previously built index.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"index_id": map[string]any{"type": "string"},
					"scope":    map[string]any{"type": "string", "enum": []string{"repo", "section", "module", "file"}},
					"target":   map[string]any{"type": "string", "description": "Module id or path; ignored for repo scope."},
					"style":    map[string]any{"type": "string", "enum": []string{"concise", "detailed"}},
				},
				"required": []string{"index_id", "scope"},
			},
		},
		{
			Name:        "search",
			Description: "Full-text search over the indexed file contents.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"index_id": map[string]any{"type": "string"},
					"q":        map[string]any{"type": "string"},
					"k":        map[string]any{"type": "integer", "description": "Maximum number of hits, default 20."},
				},
				"required": []string{"index_id", "q"},
			},
		},
	}
}
