package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	FilesWalked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deeprepo_files_walked_total",
		Help: "Total number of candidate files discovered by the repository walker.",
	})

	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "deeprepo_parsing_seconds",
		Help:    "Time spent extracting structure from a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	GraphModules = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "deeprepo_graph_modules_total",
		Help: "Number of modules in the most recently built repository graph.",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "deeprepo_graph_edges_total",
		Help: "Number of edges in the most recently built repository graph.",
	})

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deeprepo_summary_cache_hits_total",
		Help: "Summary cache lookups served without a strategy invocation.",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deeprepo_summary_cache_misses_total",
		Help: "Summary cache lookups that required a strategy invocation.",
	})

	SummarizerInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "deeprepo_summarizer_in_flight",
		Help: "Strategy invocations currently executing.",
	})

	SummaryOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deeprepo_summary_outcomes_total",
		Help: "Summarization unit outcomes by result.",
	}, []string{"outcome"})

	StrategyDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "deeprepo_strategy_seconds",
		Help:    "Latency of one summarization strategy invocation.",
		Buckets: prometheus.DefBuckets,
	}, []string{"strategy"})

	PipelineDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "deeprepo_pipeline_stage_seconds",
		Help:    "Time spent in each pipeline stage.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deeprepo_watcher_events_total",
		Help: "File system events received in watch mode.",
	})
)
