package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memo_gateway_turns_total",
			Help: "Total number of conversation turns by outcome",
		},
		[]string{"outcome"},
	)

	BackendRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "memo_gateway_backend_retries_total",
			Help: "Total number of rate-limited backend calls that were retried",
		},
	)

	BackendLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "memo_gateway_backend_latency_seconds",
			Help: "Generative backend call latency in seconds",
		},
	)

	SynthesisFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "memo_gateway_synthesis_failures_total",
			Help: "Total number of failed voice synthesis jobs",
		},
	)

	ActiveHistories = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "memo_gateway_active_histories",
			Help: "Number of conversation histories currently held in memory",
		},
	)

	StoredTurns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "memo_gateway_stored_turns",
			Help: "Total number of turns held across all histories",
		},
	)
)
