// Package app wires the pipeline stages into the service the CLI and MCP
// transports share. One RunIndex call drives walk, classify, extract, build
// and summarize exactly once; the resulting index is immutable.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"deeprepo/internal/core/config"
	domerr "deeprepo/internal/core/errors"
	"deeprepo/internal/core/ports"
	"deeprepo/internal/data/cache"
	"deeprepo/internal/engine/graph"
	"deeprepo/internal/engine/parser"
	"deeprepo/internal/engine/walker"
	"deeprepo/internal/output"
	"deeprepo/internal/shared/observability"
	"deeprepo/internal/shared/util"
	"deeprepo/internal/summarize"
)

type App struct {
	cfg    *config.Config
	parser *parser.Parser
	store  *cache.Store
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*session
}

// session holds one completed indexing run. File contents are retained in
// memory for search; summaries come pre-computed from the run. The config
// that drove the run is kept so later requests compare against what the
// session actually used, not the process-wide config.
type session struct {
	cfg         *config.Config
	index       *graph.RepoIndex
	outcomes    map[string]summarize.Outcome
	diagnostics []walker.Diagnostic
	contents    map[string]string
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var store *cache.Store
	if cfg.Cache.IsEnabled() {
		s, err := cache.Open(cfg.Cache.Path, cfg.Cache.MemoryEntries)
		if err != nil {
			// Per policy a broken cache degrades to always-miss.
			logger.Warn("summary cache unavailable, continuing without persistence",
				"path", cfg.Cache.Path, "error", err)
		} else {
			store = s
		}
	}

	return &App{
		cfg:      cfg,
		parser:   parser.NewDefaultParser(),
		store:    store,
		logger:   logger,
		sessions: make(map[string]*session),
	}, nil
}

func (a *App) Close() error {
	return a.store.Close()
}

func (a *App) Config() *config.Config {
	return a.cfg
}

// IndexRepo runs the full pipeline over the requested repository and
// registers the result under a fresh index id.
func (a *App) IndexRepo(ctx context.Context, req ports.IndexRequest) (*ports.IndexResult, error) {
	cfg := a.cfg
	if req.ConfigPath != "" {
		loaded, err := config.Load(req.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	root := req.RepoPath
	if root == "" {
		root = cfg.Project.RepoPath
	}

	sess, err := a.runPipeline(ctx, cfg, root)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.sessions[sess.index.ID] = sess
	a.mu.Unlock()

	return &ports.IndexResult{
		IndexID: sess.index.ID,
		Stats:   sess.index.Stats(),
	}, nil
}

func (a *App) runPipeline(ctx context.Context, cfg *config.Config, root string) (*session, error) {
	ctx, span := observability.Tracer.Start(ctx, "pipeline.run")
	defer span.End()

	start := time.Now()
	listing, err := walker.Walk(root, cfg.Project.Include, cfg.Project.Exclude, cfg.Analysis.MaxFileKB)
	if err != nil {
		return nil, err
	}
	observability.PipelineDuration.WithLabelValues("walk").Observe(time.Since(start).Seconds())

	diagnostics := append([]walker.Diagnostic(nil), listing.Diagnostics...)
	contents := make(map[string]string, len(listing.Entries))

	start = time.Now()
	inputs := make([]graph.Input, 0, len(listing.Entries))
	for _, entry := range listing.Entries {
		in, content, diag := a.extractEntry(cfg, entry)
		if diag != nil {
			diagnostics = append(diagnostics, *diag)
		}
		if in == nil {
			continue
		}
		inputs = append(inputs, *in)
		if content != nil {
			contents[entry.RelPath] = string(content)
		}
	}
	observability.PipelineDuration.WithLabelValues("extract").Observe(time.Since(start).Seconds())

	start = time.Now()
	idx := graph.Build(newIndexID(), root, cfg.Project.Name, inputs, cfg.Analysis.InferEntrypoints)
	observability.PipelineDuration.WithLabelValues("build").Observe(time.Since(start).Seconds())

	outcomes := map[string]summarize.Outcome{}
	if cfg.Summarize.Strategy != "none" {
		strategy, err := a.strategyFor(ctx, cfg, cfg.Summarize.Style)
		if err != nil {
			return nil, err
		}
		start = time.Now()
		s := summarize.New(a.store, strategy, cfg.Summarize.Concurrency, cfg.Summarize.GracePeriod, a.logger)
		outcomes = s.Run(ctx, idx)
		observability.PipelineDuration.WithLabelValues("summarize").Observe(time.Since(start).Seconds())
	}

	a.logger.Info("indexing run complete",
		"index_id", idx.ID,
		"root", root,
		"modules", len(idx.Modules),
		"units", len(outcomes),
		"diagnostics", len(diagnostics))

	return &session{
		cfg:         cfg,
		index:       idx,
		outcomes:    outcomes,
		diagnostics: diagnostics,
		contents:    contents,
	}, nil
}

// extractEntry turns one walked file into a graph input. Oversize files keep
// their module slot without being read; unreadable files keep a diagnostic
// and continue the run.
func (a *App) extractEntry(cfg *config.Config, entry walker.Entry) (*graph.Input, []byte, *walker.Diagnostic) {
	if entry.Oversize {
		return &graph.Input{
			RelPath:     entry.RelPath,
			Language:    parser.LanguageUnknown,
			Fingerprint: oversizeFingerprint(entry),
			SizeBytes:   entry.Size,
			Oversize:    true,
			Diagnostics: []graph.Diagnostic{{
				Code:   string(domerr.CodeSkippedOversize),
				Detail: fmt.Sprintf("%d bytes exceeds the configured limit", entry.Size),
			}},
		}, nil, nil
	}

	content, err := os.ReadFile(entry.AbsPath)
	if err != nil {
		return nil, nil, &walker.Diagnostic{
			Code:   domerr.CodeExtractionDegraded,
			Path:   entry.RelPath,
			Detail: fmt.Sprintf("read failed: %v", err),
		}
	}

	lang := a.parser.Classify(entry.RelPath, content)
	if lang != parser.LanguageUnknown && !cfg.LanguageEnabled(lang) {
		lang = parser.LanguageUnknown
	}

	in := &graph.Input{
		RelPath:     entry.RelPath,
		Language:    lang,
		Fingerprint: contentFingerprint(content),
		SizeBytes:   entry.Size,
	}

	if lang != parser.LanguageUnknown {
		in.Record = a.parser.ExtractFile(entry.RelPath, lang, content)
	}
	return in, content, nil
}

func (a *App) strategyFor(ctx context.Context, cfg *config.Config, style string) (summarize.Strategy, error) {
	if style == "" {
		style = cfg.Summarize.Style
	}
	switch cfg.Summarize.Strategy {
	case "heuristic", "":
		return summarize.NewHeuristicStrategy(style), nil
	case "generative":
		return summarize.NewGenerativeStrategy(ctx, cfg.Summarize.Model, style, cfg.Summarize.RPS, cfg.Summarize.Burst)
	default:
		return nil, domerr.New(domerr.CodeValidationError,
			fmt.Sprintf("unknown summarization strategy %q", cfg.Summarize.Strategy))
	}
}

func (a *App) session(indexID string) (*session, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	sess, ok := a.sessions[indexID]
	if !ok {
		return nil, domerr.AddContext(
			domerr.New(domerr.CodeNotFound, fmt.Sprintf("index %q not found", indexID)),
			domerr.CtxOperation, "session lookup")
	}
	return sess, nil
}

// Sessions lists registered index ids, newest not guaranteed first.
func (a *App) Sessions() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ids := make([]string, 0, len(a.sessions))
	for id := range a.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Summaries returns the per-unit outcomes of a run, keyed by unit id.
func (a *App) Summaries(indexID string) (map[string]summarize.Outcome, error) {
	sess, err := a.session(indexID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]summarize.Outcome, len(sess.outcomes))
	for id, o := range sess.outcomes {
		out[id] = o
	}
	return out, nil
}

// Diagnostics returns the non-fatal findings of a run.
func (a *App) Diagnostics(indexID string) ([]walker.Diagnostic, error) {
	sess, err := a.session(indexID)
	if err != nil {
		return nil, err
	}
	return append([]walker.Diagnostic(nil), sess.diagnostics...), nil
}

// Index returns the immutable graph of a run.
func (a *App) Index(indexID string) (*graph.RepoIndex, error) {
	sess, err := a.session(indexID)
	if err != nil {
		return nil, err
	}
	return sess.index, nil
}

// Summarize renders the summary of one unit from a completed run. A style
// differing from the configured one re-resolves the unit through the cache.
func (a *App) Summarize(ctx context.Context, req ports.SummarizeRequest) (*ports.SummarizeResult, error) {
	sess, err := a.session(req.IndexID)
	if err != nil {
		return nil, err
	}

	unitID, err := unitIDFor(sess, req.Scope, req.Target)
	if err != nil {
		return nil, err
	}

	style := req.Style
	if style == "" {
		style = sess.cfg.Summarize.Style
	}

	var outcome summarize.Outcome
	if out, ok := sess.outcomes[unitID]; ok && style == sess.cfg.Summarize.Style {
		outcome = out
	} else {
		outcome, err = a.summarizeOnDemand(ctx, sess, unitID, style)
		if err != nil {
			return nil, err
		}
	}
	if outcome.Err != nil {
		return nil, outcome.Err
	}

	result := &ports.SummarizeResult{
		ContentMD: renderMarkdown(unitID, outcome.Summary),
		Source:    string(outcome.Source),
	}
	if req.Scope == "repo" || req.Scope == "section" {
		result.Artifacts = []output.Artifact{output.MermaidArtifact(sess.index, req.Scope)}
	}
	return result, nil
}

func (a *App) summarizeOnDemand(ctx context.Context, sess *session, unitID, style string) (summarize.Outcome, error) {
	unit, err := findUnit(sess, unitID)
	if err != nil {
		return summarize.Outcome{}, err
	}
	strategy, err := a.strategyFor(ctx, sess.cfg, style)
	if err != nil {
		return summarize.Outcome{}, err
	}
	s := summarize.New(a.store, strategy, 1, sess.cfg.Summarize.GracePeriod, a.logger)
	return s.SummarizeUnit(ctx, unit), nil
}

func unitIDFor(sess *session, scope, target string) (string, error) {
	switch scope {
	case "repo":
		return "repo", nil
	case "section":
		return "section:" + strings.TrimPrefix(target, "section:"), nil
	case "module":
		if _, ok := sess.index.Module(target); ok {
			return target, nil
		}
		if m, ok := sess.index.ModuleByPath(target); ok {
			return m.ID, nil
		}
		return "", domerr.New(domerr.CodeNotFound, fmt.Sprintf("module %q not found", target))
	case "file":
		if m, ok := sess.index.ModuleByPath(target); ok {
			return m.ID, nil
		}
		return "", domerr.New(domerr.CodeNotFound, fmt.Sprintf("file %q not found", target))
	default:
		return "", domerr.New(domerr.CodeValidationError, fmt.Sprintf("unknown scope %q", scope))
	}
}

func findUnit(sess *session, unitID string) (summarize.Unit, error) {
	if m, ok := sess.index.Module(unitID); ok {
		return summarize.Unit{
			ID:        m.ID,
			Scope:     summarize.ScopeModule,
			ContentFP: m.Fingerprint,
			Module:    m,
			Index:     sess.index,
		}, nil
	}

	moduleSummaries := make(map[string]summarize.Summary)
	for id, out := range sess.outcomes {
		if out.Err == nil && out.Scope == summarize.ScopeModule {
			moduleSummaries[id] = out.Summary
		}
	}
	for _, u := range summarize.RollupUnits(sess.index, moduleSummaries) {
		if u.ID == unitID {
			return u, nil
		}
	}
	return summarize.Unit{}, domerr.New(domerr.CodeNotFound, fmt.Sprintf("unit %q not found", unitID))
}

func renderMarkdown(unitID string, s summarize.Summary) string {
	if strings.HasPrefix(s.Body, "# ") {
		return s.Body
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", unitID)
	if s.Headline != "" {
		fmt.Fprintf(&b, "%s\n\n", s.Headline)
	}
	b.WriteString(s.Body)
	return b.String()
}

func newIndexID() string {
	stamp := time.Now().UTC().Format("20060102_150405")
	return fmt.Sprintf("idx_%s_%s", stamp, uuid.NewString()[:8])
}

func contentFingerprint(content []byte) string {
	return util.Fingerprint(content)
}

// oversizeFingerprint identifies a file that was deliberately not read. Path
// and size stand in for content; an edit that keeps the size is treated as
// unchanged, which is acceptable for files this policy already skips.
func oversizeFingerprint(e walker.Entry) string {
	return util.FingerprintFields("oversize", e.RelPath, fmt.Sprintf("%d", e.Size))
}

var _ ports.IndexService = (*App)(nil)
