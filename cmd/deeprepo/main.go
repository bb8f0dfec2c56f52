package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"deeprepo/internal/core/app"
	"deeprepo/internal/core/config"
	"deeprepo/internal/core/ports"
	"deeprepo/internal/mcp"
	"deeprepo/internal/output"
	"deeprepo/internal/shared/observability"
)

var (
	configPath = flag.String("config", "./deeprepo.toml", "Path to config file")
	repoPath   = flag.String("repo", "", "Repository root (overrides config)")
	scope      = flag.String("scope", "repo", "Summarize scope: repo | section | module | file")
	target     = flag.String("target", "", "Summarize target (module id or path)")
	style      = flag.String("style", "", "Summary style: concise | detailed")
	limit      = flag.Int("k", 20, "Maximum search hits")
	outDir     = flag.String("out", "out", "Output directory for build-all artifacts")
	watch      = flag.Bool("watch", false, "Re-index on file changes (index command only)")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	version    = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "0.1.0"

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: deeprepo [flags] <command> [args]

Commands:
  index              Build the repository index and print its stats
  summarize          Index, then print the summary for -scope/-target
  search <query>     Index, then search file contents for <query>
  build-all          Index and write index, summaries and diagrams to -out
  serve-mcp          Serve the MCP tool surface over stdio

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *version {
		fmt.Printf("deeprepo v%s\n", VERSION)
		os.Exit(0)
	}

	command := flag.Arg(0)
	if command == "" {
		command = "index"
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logOut := os.Stdout
	if command == "serve-mcp" {
		// stdout carries the protocol; logs must not corrupt it.
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Observability.OTLPEndpoint != "" {
		shutdown, err := observability.InitTracing(ctx, cfg.Observability.OTLPEndpoint)
		if err != nil {
			slog.Warn("tracing unavailable", "error", err)
		} else {
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = shutdown(sctx)
			}()
		}
	}

	if cfg.Observability.MetricsAddr != "" {
		obs := observability.NewServer(cfg.Observability.MetricsAddr, nil)
		if err := obs.Start(); err != nil {
			slog.Warn("metrics server unavailable", "error", err)
		} else {
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = obs.Stop(sctx)
			}()
		}
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := run(ctx, a, command); err != nil {
		slog.Error("command failed", "command", command, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, a *app.App, command string) error {
	switch command {
	case "index":
		if *watch {
			return runWatch(ctx, a)
		}
		result, err := a.IndexRepo(ctx, ports.IndexRequest{RepoPath: *repoPath})
		if err != nil {
			return err
		}
		return printJSON(result)

	case "summarize":
		result, err := a.IndexRepo(ctx, ports.IndexRequest{RepoPath: *repoPath})
		if err != nil {
			return err
		}
		summary, err := a.Summarize(ctx, ports.SummarizeRequest{
			IndexID: result.IndexID,
			Scope:   *scope,
			Target:  *target,
			Style:   *style,
		})
		if err != nil {
			return err
		}
		fmt.Println(summary.ContentMD)
		return nil

	case "search":
		query := flag.Arg(1)
		if query == "" {
			return fmt.Errorf("search requires a query argument")
		}
		result, err := a.IndexRepo(ctx, ports.IndexRequest{RepoPath: *repoPath})
		if err != nil {
			return err
		}
		hits, err := a.Search(ctx, ports.SearchRequest{IndexID: result.IndexID, Query: query, Limit: *limit})
		if err != nil {
			return err
		}
		return printJSON(hits)

	case "build-all":
		return runBuildAll(ctx, a)

	case "serve-mcp":
		srv := mcp.NewServer(a, a.Config().MCP, slog.Default(), os.Stdin, os.Stdout)
		return srv.Serve(ctx)

	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func runWatch(ctx context.Context, a *app.App) error {
	err := a.Watch(ctx, *repoPath, func(result *ports.IndexResult, err error) {
		if err != nil {
			slog.Error("re-index failed", "error", err)
			return
		}
		slog.Info("re-indexed", "index_id", result.IndexID, "files", result.Stats.Files)
	})
	if err == context.Canceled {
		return nil
	}
	return err
}

// runBuildAll writes the full handoff: graph JSON, per-unit summaries and
// the module diagram.
func runBuildAll(ctx context.Context, a *app.App) error {
	result, err := a.IndexRepo(ctx, ports.IndexRequest{RepoPath: *repoPath})
	if err != nil {
		return err
	}

	idx, err := a.Index(result.IndexID)
	if err != nil {
		return err
	}
	outcomes, err := a.Summaries(result.IndexID)
	if err != nil {
		return err
	}
	diagnostics, err := a.Diagnostics(result.IndexID)
	if err != nil {
		return err
	}

	type unitSummary struct {
		Scope    string `json:"scope"`
		Headline string `json:"headline,omitempty"`
		Body     string `json:"body,omitempty"`
		Source   string `json:"source,omitempty"`
		Error    string `json:"error,omitempty"`
	}
	summaries := make(map[string]unitSummary, len(outcomes))
	for id, out := range outcomes {
		u := unitSummary{Scope: string(out.Scope), Source: string(out.Source)}
		if out.Err != nil {
			u.Error = out.Err.Error()
		} else {
			u.Headline = out.Summary.Headline
			u.Body = out.Summary.Body
		}
		summaries[id] = u
	}

	if err := writeJSON(filepath.Join(*outDir, "index.json"), idx); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(*outDir, "summaries.json"), summaries); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(*outDir, "diagnostics.json"), diagnostics); err != nil {
		return err
	}

	artifact := output.MermaidArtifact(idx, "repo")
	diagramPath := filepath.Join(*outDir, filepath.FromSlash(artifact.Path))
	if err := os.MkdirAll(filepath.Dir(diagramPath), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(diagramPath, []byte(artifact.Content), 0o644); err != nil {
		return err
	}

	slog.Info("handoff written", "dir", *outDir, "index_id", result.IndexID, "units", len(summaries))
	return nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
