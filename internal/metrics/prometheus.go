// Package metrics implements the ledger metrics collector on top of
// Prometheus. The /metrics endpoint exposes the default registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector satisfies the wallet service's MetricsCollector interface.
type Collector struct {
	transactions *prometheus.CounterVec
	creditVolume *prometheus.CounterVec
	errors       *prometheus.CounterVec
	duration     *prometheus.HistogramVec
}

func NewCollector() *Collector {
	return &Collector{
		transactions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "finwell_ledger_transactions_total",
			Help: "Ledger transactions appended, by operation.",
		}, []string{"operation"}),
		creditVolume: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "finwell_ledger_credits_total",
			Help: "Credits moved through the ledger, by operation.",
		}, []string{"operation"}),
		errors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "finwell_ledger_errors_total",
			Help: "Ledger operation failures, by operation and error type.",
		}, []string{"operation", "error_type"}),
		duration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "finwell_ledger_operation_duration_seconds",
			Help:    "Ledger operation latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

func (c *Collector) RecordTransaction(operation string, amount int64) {
	c.transactions.WithLabelValues(operation).Inc()
	c.creditVolume.WithLabelValues(operation).Add(float64(amount))
}

func (c *Collector) RecordError(operation, errType string) {
	c.errors.WithLabelValues(operation, errType).Inc()
}

func (c *Collector) RecordOperationDuration(operation string, duration time.Duration) {
	c.duration.WithLabelValues(operation).Observe(duration.Seconds())
}
