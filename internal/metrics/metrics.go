// Package metrics exposes the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TurnsTotal counts finished conversation turns by resolved intent.
	TurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "copilot_turns_total",
		Help: "Finished conversation turns by resolved intent.",
	}, []string{"intent"})

	// TurnErrors counts turns that failed before producing a delta.
	TurnErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "copilot_turn_errors_total",
		Help: "Turns aborted by a graph error.",
	})

	// ClassifierFallbacks counts intent classifications resolved by the
	// keyword heuristics instead of the model.
	ClassifierFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "copilot_classifier_fallbacks_total",
		Help: "Intent classifications that fell back to keyword rules.",
	})

	// RegistryCalls counts tool registry round trips by registry and outcome.
	RegistryCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "copilot_registry_calls_total",
		Help: "Tool registry calls by registry, method and outcome.",
	}, []string{"registry", "method", "status"})

	// TurnDuration tracks end-to-end turn latency.
	TurnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "copilot_turn_duration_seconds",
		Help:    "End-to-end turn latency.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})
)
