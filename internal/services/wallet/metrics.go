package wallet

import "time"

// MetricsCollector records ledger operation outcomes. The issuance and
// allocation services share this interface.
type MetricsCollector interface {
	RecordTransaction(operation string, amount int64)
	RecordError(operation, errType string)
	RecordOperationDuration(operation string, duration time.Duration)
}

// NoopMetricsCollector is used when no metrics backend is configured.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordTransaction(string, int64)               {}
func (NoopMetricsCollector) RecordError(string, string)                    {}
func (NoopMetricsCollector) RecordOperationDuration(string, time.Duration) {}
