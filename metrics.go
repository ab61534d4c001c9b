package goRights

import (
	internalmetrics "github.com/MrEthical07/goRights/internal/metrics"
)

// MetricID identifies a counter or the latency histogram.
type MetricID = internalmetrics.MetricID

const (
	MetricDecisionGrant      = internalmetrics.MetricDecisionGrant
	MetricDecisionDeny       = internalmetrics.MetricDecisionDeny
	MetricDecisionAbstain    = internalmetrics.MetricDecisionAbstain
	MetricSuperAdminBypass   = internalmetrics.MetricSuperAdminBypass
	MetricOverrideRightsUsed = internalmetrics.MetricOverrideRightsUsed
	MetricDisabledDenied     = internalmetrics.MetricDisabledDenied
	MetricReloadSuccess      = internalmetrics.MetricReloadSuccess
	MetricReloadFailure      = internalmetrics.MetricReloadFailure
	MetricRightsUpdated      = internalmetrics.MetricRightsUpdated
	// MetricDecisionLatency is the only histogram.
	MetricDecisionLatency = internalmetrics.MetricDecisionLatency
)

// Metrics holds atomic counters and the optional latency histogram.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a [Metrics] configured by cfg. When Enabled is false,
// all operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}
