package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pipeline metrics
	ResearchRunsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dossier_research_runs_started_total",
			Help: "Total number of research pipeline runs started",
		},
	)

	ResearchRunsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dossier_research_runs_completed_total",
			Help: "Total number of research pipeline runs completed",
		},
		[]string{"branch", "status"},
	)

	ResearchRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dossier_research_run_duration_seconds",
			Help:    "End-to-end research pipeline duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	// Decomposition metrics
	Decompositions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dossier_decompositions_total",
			Help: "Total number of decomposition verdicts by strategy",
		},
		[]string{"strategy"},
	)

	DecompositionErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dossier_decomposition_errors_total",
			Help: "Total number of decomposition calls that fell back to the safe default",
		},
	)

	DecompositionLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dossier_decomposition_latency_seconds",
			Help:    "Latency of decomposition verdict calls",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Sub-query execution metrics
	SubQueryExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dossier_subquery_executions_total",
			Help: "Total number of sub-query executions by outcome",
		},
		[]string{"status"},
	)

	SubQueryBatches = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dossier_subquery_batches",
			Help:    "Number of dependency batches per decomposed run",
			Buckets: []float64{1, 2, 3, 4, 5, 6},
		},
	)

	CycleFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dossier_dependency_cycle_fallbacks_total",
			Help: "Times an unsatisfiable dependency graph forced a best-effort final batch",
		},
	)

	// Perspective metrics
	PerspectiveRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dossier_perspective_runs_total",
			Help: "Total number of perspective analyses by persona and outcome",
		},
		[]string{"persona", "status"},
	)

	// Relationship graph metrics
	RelationshipPasses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dossier_relationship_passes_total",
			Help: "Total number of relationship extraction passes by kind and outcome",
		},
		[]string{"pass", "status"},
	)

	// LLM gateway metrics
	LLMCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dossier_llm_calls_total",
			Help: "Total number of LLM gateway calls by agent and outcome",
		},
		[]string{"agent_id", "status"},
	)

	LLMCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dossier_llm_call_latency_seconds",
			Help:    "LLM gateway call latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"agent_id"},
	)

	LLMTokensUsed = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dossier_llm_tokens_used",
			Help:    "Tokens used per LLM gateway call",
			Buckets: []float64{50, 100, 500, 1000, 2000, 4000, 8000},
		},
	)

	LLMCostUSD = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dossier_llm_cost_usd",
			Help:    "Cost in USD per LLM gateway call",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1},
		},
	)

	JSONParseFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dossier_json_parse_fallbacks_total",
			Help: "Times tolerant JSON extraction needed a fallback step or gave up",
		},
		[]string{"stage"},
	)

	// Pricing metrics
	PricingFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dossier_pricing_fallbacks_total",
			Help: "Times cost computation fell back to the default rate",
		},
		[]string{"reason"},
	)

	// Session metrics
	SessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dossier_sessions_created_total",
			Help: "Total number of research sessions created",
		},
	)

	SessionCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dossier_session_cache_total",
			Help: "Session lookups by cache outcome",
		},
		[]string{"outcome"},
	)

	// Persistence metrics
	DBWritesQueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dossier_db_writes_queued_total",
			Help: "Async persistence writes queued by record kind",
		},
		[]string{"kind"},
	)

	DBWriteErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dossier_db_write_errors_total",
			Help: "Async persistence write failures by record kind",
		},
		[]string{"kind"},
	)
)
