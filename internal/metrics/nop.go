// Package metrics provides MetricsCollector implementations for the rolecall
// library.
package metrics

import "github.com/teamflow/rolecall/types"

// NopCollector is a MetricsCollector that discards all measurements.
//
// Used as the default so internal code never needs nil checks before
// recording.
type NopCollector struct{}

// Compile-time assertion that NopCollector implements MetricsCollector.
var _ types.MetricsCollector = (*NopCollector)(nil)

// NewNop creates a new no-op metrics collector.
func NewNop() *NopCollector {
	return &NopCollector{}
}

// RecordSubmission discards the measurement.
func (n *NopCollector) RecordSubmission(_ string) {}

// RecordWithdrawal discards the measurement.
func (n *NopCollector) RecordWithdrawal(_ string) {}

// RecordBroadcast discards the measurement.
func (n *NopCollector) RecordBroadcast(_, _ string, _ int) {}

// RecordAssignmentRun discards the measurement.
func (n *NopCollector) RecordAssignmentRun(_, _ string, _ float64) {}

// RecordReconciliationDrop discards the measurement.
func (n *NopCollector) RecordReconciliationDrop(_ string) {}
