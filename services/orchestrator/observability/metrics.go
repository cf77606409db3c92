// Package observability provides Prometheus metrics for the chat service.
//
// Metrics cover turn outcomes, policy short-circuits, leak-filter
// substitutions, ingestion volume, and turn latency. They are exposed on
// /metrics and are safe for concurrent use via Prometheus's own locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "docsage"

const chatSubsystem = "chat"

// ChatMetrics holds all Prometheus metrics for conversation handling.
// Initialize once at startup via InitMetrics().
type ChatMetrics struct {
	// TurnsTotal counts handled turns.
	// Labels: status (answered, short_circuit, validation_error, not_found, error)
	TurnsTotal *prometheus.CounterVec

	// ShortCircuitsTotal counts policy short-circuits.
	// Labels: category (gratitude, hostile, sensitive)
	ShortCircuitsTotal *prometheus.CounterVec

	// FilteredAnswersTotal counts generated answers replaced by the leak
	// filter before reaching the caller.
	FilteredAnswersTotal prometheus.Counter

	// TurnDurationSeconds measures end-to-end turn latency.
	// Labels: status (answered, short_circuit, error)
	TurnDurationSeconds *prometheus.HistogramVec

	// ChunksIndexedTotal counts chunks written to the vector index.
	ChunksIndexedTotal prometheus.Counter

	// SessionsActive tracks how many sessions are live in the store.
	SessionsActive prometheus.Gauge
}

// DefaultMetrics is the singleton instance, set by InitMetrics.
var DefaultMetrics *ChatMetrics

// InitMetrics registers all metrics with the default registry. Call once at
// startup; a second call panics on duplicate registration.
func InitMetrics() *ChatMetrics {
	DefaultMetrics = &ChatMetrics{
		TurnsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "turns_total",
				Help:      "Total handled turns by outcome",
			},
			[]string{"status"},
		),

		ShortCircuitsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "short_circuits_total",
				Help:      "Total policy short-circuits by category",
			},
			[]string{"category"},
		),

		FilteredAnswersTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "filtered_answers_total",
				Help:      "Total generated answers replaced by the leak filter",
			},
		),

		TurnDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "turn_duration_seconds",
				Help:      "End-to-end turn latency in seconds",
				Buckets:   []float64{0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"status"},
		),

		ChunksIndexedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "chunks_indexed_total",
				Help:      "Total document chunks written to the vector index",
			},
		),

		SessionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "sessions_active",
				Help:      "Number of live chat sessions",
			},
		),
	}

	return DefaultMetrics
}

// Turn outcome label values.
const (
	StatusAnswered        = "answered"
	StatusShortCircuit    = "short_circuit"
	StatusValidationError = "validation_error"
	StatusNotFound        = "not_found"
	StatusError           = "error"
)
