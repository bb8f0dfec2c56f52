// Package summarize fans repository units out to a bounded worker pool,
// consulting the content-addressed cache before invoking the configured
// strategy.
package summarize

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	domerr "deeprepo/internal/core/errors"
	"deeprepo/internal/data/cache"
	"deeprepo/internal/engine/graph"
	"deeprepo/internal/shared/observability"
)

// Source records where a unit's summary came from.
type Source string

const (
	SourceCache    Source = "cache"
	SourceStrategy Source = "strategy"
)

// Outcome is the per-unit result. Exactly one of Summary or Err is
// meaningful; callers key results by unit id, never by order.
type Outcome struct {
	UnitID  string
	Scope   Scope
	Summary Summary
	Err     error
	Source  Source
}

type Summarizer struct {
	store       *cache.Store
	strategy    Strategy
	concurrency int
	grace       time.Duration
	logger      *slog.Logger
}

// New builds a summarizer. store may be nil, in which case every unit is a
// cache miss and nothing is persisted.
func New(store *cache.Store, strategy Strategy, concurrency int, grace time.Duration, logger *slog.Logger) *Summarizer {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{
		store:       store,
		strategy:    strategy,
		concurrency: concurrency,
		grace:       grace,
		logger:      logger,
	}
}

// Run summarizes every module unit, then the section and repo rollups. The
// rollup phase consumes the per-module summaries produced by the first
// phase, so rollups never touch raw source. The returned map is complete:
// one outcome per unit, success or failure.
func (s *Summarizer) Run(ctx context.Context, idx *graph.RepoIndex) map[string]Outcome {
	results := s.runUnits(ctx, ModuleUnits(idx))

	moduleSummaries := make(map[string]Summary, len(results))
	for id, out := range results {
		if out.Err == nil {
			moduleSummaries[id] = out.Summary
		}
	}

	for id, out := range s.runUnits(ctx, RollupUnits(idx, moduleSummaries)) {
		results[id] = out
	}
	return results
}

// SummarizeUnit resolves a single unit outside a pipeline run, cache first.
func (s *Summarizer) SummarizeUnit(ctx context.Context, unit Unit) Outcome {
	configFP := s.strategy.Fingerprint()
	if entry, ok := s.store.Get(unit.ID, unit.ContentFP, configFP); ok {
		observability.SummaryOutcomes.WithLabelValues("cache_hit").Inc()
		return Outcome{
			UnitID:  unit.ID,
			Scope:   unit.Scope,
			Summary: Summary{Headline: entry.Headline, Body: entry.Body},
			Source:  SourceCache,
		}
	}
	return s.summarizeOne(ctx, unit, configFP)
}

// runUnits resolves each unit from the cache or the strategy pool. The pool
// bounds in-flight strategy invocations; cache hits never occupy a slot.
func (s *Summarizer) runUnits(ctx context.Context, units []Unit) map[string]Outcome {
	results := make(map[string]Outcome, len(units))
	configFP := s.strategy.Fingerprint()

	var mu sync.Mutex
	p := pool.New().WithMaxGoroutines(s.concurrency)

	for _, unit := range units {
		if entry, ok := s.store.Get(unit.ID, unit.ContentFP, configFP); ok {
			results[unit.ID] = Outcome{
				UnitID:  unit.ID,
				Scope:   unit.Scope,
				Summary: Summary{Headline: entry.Headline, Body: entry.Body},
				Source:  SourceCache,
			}
			observability.SummaryOutcomes.WithLabelValues("cache_hit").Inc()
			continue
		}

		unit := unit
		p.Go(func() {
			out := s.summarizeOne(ctx, unit, configFP)
			mu.Lock()
			results[unit.ID] = out
			mu.Unlock()
		})
	}

	p.Wait()
	return results
}

func (s *Summarizer) summarizeOne(ctx context.Context, unit Unit, configFP string) Outcome {
	out := Outcome{UnitID: unit.ID, Scope: unit.Scope, Source: SourceStrategy}

	// Units not yet started when the run is canceled are not started at all.
	if err := ctx.Err(); err != nil {
		out.Err = domerr.AddContext(
			domerr.Wrap(err, domerr.CodeSummarizationFailed, "run canceled before unit started"),
			domerr.CtxUnit, unit.ID)
		observability.SummaryOutcomes.WithLabelValues("canceled").Inc()
		return out
	}

	observability.SummarizerInFlight.Inc()
	defer observability.SummarizerInFlight.Dec()

	sctx, cancel := s.graceContext(ctx)
	defer cancel()

	start := time.Now()
	summary, err := s.strategy.Summarize(sctx, unit)
	observability.StrategyDuration.WithLabelValues(s.strategy.Name()).Observe(time.Since(start).Seconds())

	if err != nil {
		out.Err = domerr.AddContext(
			domerr.Wrap(err, domerr.CodeSummarizationFailed, "strategy invocation failed"),
			domerr.CtxUnit, unit.ID)
		observability.SummaryOutcomes.WithLabelValues("failed").Inc()
		s.logger.Warn("unit summarization failed", "unit", unit.ID, "error", err)
		return out
	}

	// Persist before reporting, so a restart mid-run loses only in-flight
	// units. A failed write degrades to a miss on the next run.
	if err := s.store.Put(cache.Entry{
		UnitID:    unit.ID,
		ContentFP: unit.ContentFP,
		ConfigFP:  configFP,
		Headline:  summary.Headline,
		Body:      summary.Body,
		Strategy:  s.strategy.Name(),
	}); err != nil {
		s.logger.Warn("cache write failed", "unit", unit.ID, "error", err)
	}

	out.Summary = summary
	observability.SummaryOutcomes.WithLabelValues("generated").Inc()
	return out
}

// graceContext returns a context that outlives run cancellation by the
// configured grace period, so in-flight invocations get a chance to finish.
func (s *Summarizer) graceContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.grace <= 0 {
		return context.WithCancel(ctx)
	}

	detached, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(ctx, func() {
		timer := time.NewTimer(s.grace)
		defer timer.Stop()
		select {
		case <-timer.C:
			cancel()
		case <-detached.Done():
		}
	})
	return detached, func() {
		stop()
		cancel()
	}
}
