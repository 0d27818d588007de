package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ChatRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_chat_requests_total",
			Help: "Chat turns handled, by reply source",
		},
		[]string{"source"},
	)

	ChatDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "assistant_chat_duration_seconds",
			Help:    "End-to-end chat turn latency",
			Buckets: prometheus.DefBuckets,
		},
	)

	ToolInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_tool_invocations_total",
			Help: "Tool invocations, by tool name and result policy",
		},
		[]string{"tool", "policy", "ok"},
	)

	ModelCalls = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_model_call_duration_seconds",
			Help:    "Language model call latency, by phase and outcome",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"phase", "outcome"},
	)

	GuardrailOverrides = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_guardrail_overrides_total",
			Help: "Replies replaced by a deterministic message, by rule",
		},
		[]string{"rule"},
	)

	PreRouterHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_prerouter_hits_total",
			Help: "Turns answered by a deterministic pre-router rule",
		},
		[]string{"rule"},
	)
)
