// Package metrics defines the Prometheus instrumentation for the analysis
// pipeline and its storage layer. Everything registers against the default
// registerer so the /metrics endpoint picks it up without extra wiring.
package metrics

import (
	"context"
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/trace"
)

// BusinessMetrics covers the analysis pipeline itself.
type BusinessMetrics struct {
	AnalysesTotal           *prometheus.CounterVec
	AnalysisDuration        *prometheus.HistogramVec
	DocumentsProcessedTotal prometheus.Counter
	DuplicatesDroppedTotal  prometheus.Counter
	InsightsGeneratedTotal  prometheus.Counter
	SearchRequestsTotal     *prometheus.CounterVec
}

// NewBusinessMetrics registers and returns the pipeline metrics for the
// given service namespace.
func NewBusinessMetrics(namespace string) *BusinessMetrics {
	return &BusinessMetrics{
		AnalysesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Total number of analysis runs by status.",
		}, []string{"status"}),
		AnalysisDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Time spent producing a report.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		DocumentsProcessedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_processed_total",
			Help:      "Total number of raw documents enriched.",
		}),
		DuplicatesDroppedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_dropped_total",
			Help:      "Total number of documents dropped as near-duplicates.",
		}),
		InsightsGeneratedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "insights_generated_total",
			Help:      "Total number of insights extracted across all reports.",
		}),
		SearchRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Upstream search API calls by outcome.",
		}, []string{"status"}),
	}
}

// ObserveDurationWithExemplar records a duration and, when the context
// carries a sampled trace, attaches the trace ID as an exemplar so the
// histogram sample can link back to the trace.
func (m *BusinessMetrics) ObserveDurationWithExemplar(ctx context.Context, vec *prometheus.HistogramVec, seconds float64, labels ...string) {
	observer := vec.WithLabelValues(labels...)

	span := trace.SpanFromContext(ctx)
	if sc := span.SpanContext(); sc.IsValid() && sc.IsSampled() {
		if exemplarObserver, ok := observer.(prometheus.ExemplarObserver); ok {
			exemplarObserver.ObserveWithExemplar(seconds, prometheus.Labels{
				"trace_id": sc.TraceID().String(),
			})
			return
		}
	}
	observer.Observe(seconds)
}

// DatabaseMetrics exposes connection pool stats as gauges.
type DatabaseMetrics struct {
	OpenConnections prometheus.Gauge
	InUse           prometheus.Gauge
	Idle            prometheus.Gauge
	WaitCount       prometheus.Gauge
	WaitDuration    prometheus.Gauge
}

// NewDatabaseMetrics registers and returns the database gauges.
func NewDatabaseMetrics(namespace string) *DatabaseMetrics {
	return &DatabaseMetrics{
		OpenConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "open_connections",
			Help:      "Currently open database connections.",
		}),
		InUse: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "connections_in_use",
			Help:      "Database connections currently in use.",
		}),
		Idle: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "connections_idle",
			Help:      "Idle database connections.",
		}),
		WaitCount: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "wait_count",
			Help:      "Total number of connections waited for.",
		}),
		WaitDuration: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "wait_duration_seconds",
			Help:      "Total time blocked waiting for a connection.",
		}),
	}
}

// UpdateDBStats refreshes the gauges from the pool's current stats.
func (m *DatabaseMetrics) UpdateDBStats(db *sql.DB) {
	stats := db.Stats()
	m.OpenConnections.Set(float64(stats.OpenConnections))
	m.InUse.Set(float64(stats.InUse))
	m.Idle.Set(float64(stats.Idle))
	m.WaitCount.Set(float64(stats.WaitCount))
	m.WaitDuration.Set(stats.WaitDuration.Seconds())
}
