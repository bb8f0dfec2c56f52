package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"deeprepo/internal/core/errors"
)

const DefaultConfigFile = "deeprepo.toml"

// Load reads a TOML config file, applies defaults and validates the result.
// A missing path yields the defaults so a bare `deeprepo index .` still works.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				applyDefaults(cfg)
				return cfg, cfg.validate()
			}
			return nil, errors.Wrap(err, errors.CodeFatalIO, fmt.Sprintf("read config %q", path))
		}
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, errors.Wrap(err, errors.CodeValidationError, fmt.Sprintf("parse config %q", path))
		}
	}

	applyDefaults(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Project.Name) == "" {
		cfg.Project.Name = "Unnamed Project"
	}
	if strings.TrimSpace(cfg.Project.RepoPath) == "" {
		cfg.Project.RepoPath = "."
	}
	if len(cfg.Project.Include) == 0 {
		cfg.Project.Include = []string{"**"}
	}
	if len(cfg.Project.Exclude) == 0 {
		cfg.Project.Exclude = []string{
			"**/node_modules/**",
			"**/dist/**",
			"**/vendor/**",
		}
	}

	if cfg.Analysis.MaxFileKB <= 0 {
		cfg.Analysis.MaxFileKB = 512
	}

	if strings.TrimSpace(cfg.Summarize.Strategy) == "" {
		cfg.Summarize.Strategy = "heuristic"
	}
	if strings.TrimSpace(cfg.Summarize.Style) == "" {
		cfg.Summarize.Style = "concise"
	}
	if cfg.Summarize.Concurrency <= 0 {
		cfg.Summarize.Concurrency = 16
	}
	if cfg.Summarize.GracePeriod <= 0 {
		cfg.Summarize.GracePeriod = 5 * time.Second
	}

	if strings.TrimSpace(cfg.Cache.Path) == "" {
		cfg.Cache.Path = "data/cache/summaries.db"
	}
	if cfg.Cache.MemoryEntries <= 0 {
		cfg.Cache.MemoryEntries = 1024
	}

	if strings.TrimSpace(cfg.MCP.Transport) == "" {
		cfg.MCP.Transport = "stdio"
	}
	if cfg.MCP.RequestsPerMinute <= 0 {
		cfg.MCP.RequestsPerMinute = 120
	}
	if cfg.MCP.Burst <= 0 {
		cfg.MCP.Burst = 10
	}

	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
}

func (c *Config) validate() error {
	switch c.Summarize.Strategy {
	case "none", "heuristic", "generative":
	default:
		return errors.New(errors.CodeValidationError,
			fmt.Sprintf("summarize.strategy must be none, heuristic or generative, got %q", c.Summarize.Strategy))
	}

	switch c.Summarize.Style {
	case "concise", "detailed":
	default:
		return errors.New(errors.CodeValidationError,
			fmt.Sprintf("summarize.style must be concise or detailed, got %q", c.Summarize.Style))
	}

	if c.Summarize.Concurrency < 1 {
		return errors.New(errors.CodeValidationError, "summarize.concurrency must be at least 1")
	}
	if c.Analysis.MaxFileKB < 1 {
		return errors.New(errors.CodeValidationError, "analysis.max_file_kb must be at least 1")
	}

	switch c.MCP.Transport {
	case "stdio":
	default:
		return errors.New(errors.CodeValidationError,
			fmt.Sprintf("mcp.transport must be stdio, got %q", c.MCP.Transport))
	}

	return nil
}
