// Package observability provides Prometheus metrics for the plauder
// chat client. Collectors are package-level and registered once at init,
// so library packages can record values without any wiring. The metrics
// endpoint itself is optional and lives in cmd/plauder.
package observability

import "github.com/prometheus/client_golang/prometheus"

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

// ToolBuckets defines histogram buckets for tool execution durations,
// ranging from 10ms to 60s.
var ToolBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60}

var (
	// ProviderRequestsTotal counts streaming requests sent to the model backend.
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plauder_provider_requests_total",
			Help: "Model backend requests",
		},
		[]string{"provider", "model", "status"},
	)

	// ProviderLatency records full stream duration in seconds, first byte to last.
	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "plauder_provider_latency_seconds",
			Help:    "Model backend stream duration",
			Buckets: LLMBuckets,
		},
		[]string{"provider", "model"},
	)

	// ProviderTokensTotal counts tokens reported by the backend, by direction
	// (input/output).
	ProviderTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plauder_provider_tokens_total",
			Help: "Token count",
		},
		[]string{"provider", "model", "direction"},
	)

	// ToolExecutionsTotal counts tool executions by name and outcome.
	ToolExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plauder_tool_executions_total",
			Help: "Tool executions",
		},
		[]string{"tool_name", "status"},
	)

	// ToolDuration records tool execution duration in seconds.
	ToolDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "plauder_tool_duration_seconds",
			Help:    "Tool execution duration",
			Buckets: ToolBuckets,
		},
		[]string{"tool_name"},
	)

	// ConversationTurnsTotal counts model turns by how they ended
	// (final, tool_calls, error, turn_limit).
	ConversationTurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plauder_conversation_turns_total",
			Help: "Conversation turns",
		},
		[]string{"outcome"},
	)

	// ElicitationsTotal counts elicitation requests relayed to the user,
	// by provider and resulting action.
	ElicitationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plauder_elicitations_total",
			Help: "Elicitation requests",
		},
		[]string{"provider", "action"},
	)
)

func init() {
	prometheus.MustRegister(
		ProviderRequestsTotal,
		ProviderLatency,
		ProviderTokensTotal,
		ToolExecutionsTotal,
		ToolDuration,
		ConversationTurnsTotal,
		ElicitationsTotal,
	)
}
