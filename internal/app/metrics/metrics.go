// Package metrics exposes the registry's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xrf-labs/asset-registry/internal/app/fault"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "asset_registry",
			Subsystem: "engine",
			Name:      "operations_total",
			Help:      "Total registry operations by entity, operation and result code.",
		},
		[]string{"entity", "op", "result"},
	)

	operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "asset_registry",
			Subsystem: "engine",
			Name:      "operation_duration_seconds",
			Help:      "Duration of registry operations.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"entity", "op"},
	)

	transfersIssued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "asset_registry",
			Subsystem: "engine",
			Name:      "transfer_certificates_issued_total",
			Help:      "Total transfer certificates issued.",
		},
	)

	streamedChunks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "asset_registry",
			Subsystem: "engine",
			Name:      "streamed_chunks_total",
			Help:      "Total chunks emitted by streamed listings.",
		},
	)
)

func init() {
	Registry.MustRegister(operations, operationDuration, transfersIssued, streamedChunks)
}

// ObserveOperation records one completed engine operation.
func ObserveOperation(entity, op string, started time.Time, err error) {
	result := "ok"
	if err != nil {
		result = fault.CodeOf(err).String()
	}
	operations.WithLabelValues(entity, op, result).Inc()
	operationDuration.WithLabelValues(entity, op).Observe(time.Since(started).Seconds())
}

// CertificateIssued counts a successful ownership transfer.
func CertificateIssued() { transfersIssued.Inc() }

// ChunkStreamed counts one emitted stream chunk.
func ChunkStreamed() { streamedChunks.Inc() }

// Handler serves the collectors over HTTP.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
