package config

import (
	"time"

	"deeprepo/internal/shared/util"
)

type Config struct {
	Project       Project       `toml:"project"`
	Analysis      Analysis      `toml:"analysis"`
	Summarize     Summarize     `toml:"summarize"`
	Cache         Cache         `toml:"cache"`
	MCP           MCP           `toml:"mcp"`
	Observability Observability `toml:"observability"`
	Watch         Watch         `toml:"watch"`
}

type Project struct {
	Name     string   `toml:"name"`
	RepoPath string   `toml:"repo_path"`
	Include  []string `toml:"include"`
	Exclude  []string `toml:"exclude"`
}

type Analysis struct {
	Languages        []string `toml:"languages"`
	MaxFileKB        int      `toml:"max_file_kb"`
	InferEntrypoints []string `toml:"infer_entrypoints"`
}

type Summarize struct {
	Strategy    string        `toml:"strategy"` // none | heuristic | generative
	Model       string        `toml:"model"`
	Style       string        `toml:"style"` // concise | detailed
	Concurrency int           `toml:"concurrency"`
	GracePeriod time.Duration `toml:"grace_period"`
	RPS         float64       `toml:"rps"`
	Burst       int           `toml:"burst"`
}

type Cache struct {
	// Enabled is a pointer so an absent key defaults to true while an
	// explicit `enabled = false` still turns caching off.
	Enabled       *bool  `toml:"enabled"`
	Path          string `toml:"path"`
	MemoryEntries int    `toml:"memory_entries"`
}

func (c Cache) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

type MCP struct {
	Enabled           bool   `toml:"enabled"`
	Transport         string `toml:"transport"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
	Burst             int    `toml:"burst"`
}

type Observability struct {
	MetricsAddr  string `toml:"metrics_addr"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
}

// Fingerprint identifies the summarizer-relevant configuration. Cached
// summaries are reusable only while this value is unchanged.
func (c *Config) Fingerprint() string {
	return util.FingerprintFields(
		c.Summarize.Strategy,
		c.Summarize.Model,
		c.Summarize.Style,
	)
}

// LanguageEnabled reports whether a language tag is in the enabled set.
// An empty set enables every registered language.
func (c *Config) LanguageEnabled(tag string) bool {
	if len(c.Analysis.Languages) == 0 {
		return true
	}
	for _, l := range c.Analysis.Languages {
		if l == tag {
			return true
		}
	}
	return false
}
