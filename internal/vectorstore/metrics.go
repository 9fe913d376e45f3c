package vectorstore

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OperationDuration tracks store operation latency.
	// Labels: backend (chromem, qdrant), operation (add, update, search)
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tutor",
			Subsystem: "vectorstore",
			Name:      "operation_duration_seconds",
			Help:      "Duration of vector store operations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	// OperationErrors counts failed store operations.
	OperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tutor",
			Subsystem: "vectorstore",
			Name:      "operation_errors_total",
			Help:      "Total number of failed vector store operations",
		},
		[]string{"backend", "operation"},
	)

	// Ready is 1 once the service has started and its collections exist.
	Ready = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tutor",
			Subsystem: "vectorstore",
			Name:      "ready",
			Help:      "Whether the vector store service is ready (1) or not (0)",
		},
	)
)

func observe(backend, operation string, start time.Time, err error) {
	OperationDuration.WithLabelValues(backend, operation).Observe(time.Since(start).Seconds())
	if err != nil {
		OperationErrors.WithLabelValues(backend, operation).Inc()
	}
}

func setReady(ready bool) {
	if ready {
		Ready.Set(1)
		return
	}
	Ready.Set(0)
}
