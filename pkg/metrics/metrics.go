// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// ExtractionsTotal tracks extraction attempts by provider and outcome.
	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extractions_total",
			Help: "Total conversation extraction attempts",
		},
		[]string{"provider", "status"},
	)

	// ExtractedMessages tracks how many messages each extraction yields.
	ExtractedMessages = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "extraction_messages",
			Help:    "Messages recovered per extraction",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 200},
		},
	)

	// StoreOperationDuration tracks conversation store operation duration.
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Conversation store operation duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// ConversationsStored tracks the number of conversations in the store.
	ConversationsStored = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "conversations_stored",
			Help: "Number of conversations currently stored",
		},
	)

	// ConversationsEvicted tracks conversations removed by capacity cleanup.
	ConversationsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "conversations_evicted_total",
			Help: "Conversations evicted under storage pressure",
		},
	)

	// StorageUsageBytes tracks the serialized size of the backend namespace.
	StorageUsageBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "storage_usage_bytes",
			Help: "Serialized size of the storage namespace in bytes",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordExtraction records the outcome of an extraction attempt.
func RecordExtraction(provider, status string, messages int) {
	ExtractionsTotal.WithLabelValues(provider, status).Inc()
	if messages > 0 {
		ExtractedMessages.Observe(float64(messages))
	}
}

// RecordStoreOperation records the duration of a store operation.
func RecordStoreOperation(operation string, duration float64) {
	StoreOperationDuration.WithLabelValues(operation).Observe(duration)
}
