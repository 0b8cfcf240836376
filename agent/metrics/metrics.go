package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ToolInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concierge_tool_invocations_total",
			Help: "Total number of tool invocations by tool and outcome",
		},
		[]string{"tool", "status"},
	)

	ToolDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "concierge_tool_duration_seconds",
			Help:    "Duration of tool handler execution in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		},
		[]string{"tool"},
	)

	ToolResultCount = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "concierge_tool_result_count",
			Help:    "Number of records returned per tool invocation",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		},
		[]string{"tool"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concierge_cache_lookups_total",
			Help: "Result cache lookups by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "concierge_cache_entries",
			Help: "Entries held by the in-memory result cache",
		},
	)

	ModelCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concierge_model_calls_total",
			Help: "Remote model calls by provider and outcome",
		},
		[]string{"provider", "status"},
	)

	ModelDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "concierge_model_call_duration_seconds",
			Help:    "Duration of remote model calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	ConversationIterations = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "concierge_conversation_iterations",
			Help:    "Orchestrator iterations per chat request",
			Buckets: []float64{1, 2, 3, 4, 5},
		},
	)

	ConversationCompletions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concierge_conversation_completions_total",
			Help: "Chat requests by completion reason",
		},
		[]string{"completion"},
	)

	ConversationFaults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "concierge_conversation_faults_total",
			Help: "Chat requests that ended in a fault, by kind",
		},
		[]string{"kind"},
	)
)
