package internaldefs

import (
	goRights "github.com/MrEthical07/goRights"
)

// CounterDef names an exported counter.
type CounterDef struct {
	ID   goRights.MetricID
	Name string
	Help string
}

// HistogramDef names an exported histogram.
type HistogramDef struct {
	ID   goRights.MetricID
	Name string
	Help string
}

// AuditDroppedName is exported alongside the engine counters; its value comes
// from Engine.AuditDropped.
const (
	AuditDroppedName = "gorights_audit_dropped_total"
	AuditDroppedHelp = "Audit events dropped due to dispatcher backpressure."
)

// CounterDefs lists every exported counter in exposition order.
var CounterDefs = []CounterDef{
	{ID: goRights.MetricDecisionGrant, Name: "gorights_decision_grant_total", Help: "Decisions that granted access."},
	{ID: goRights.MetricDecisionDeny, Name: "gorights_decision_deny_total", Help: "Decisions that denied access."},
	{ID: goRights.MetricDecisionAbstain, Name: "gorights_decision_abstain_total", Help: "Decisions on unknown actions or resources."},
	{ID: goRights.MetricSuperAdminBypass, Name: "gorights_super_admin_bypass_total", Help: "Grants issued by the super-admin short-circuit."},
	{ID: goRights.MetricOverrideRightsUsed, Name: "gorights_override_rights_used_total", Help: "Decisions evaluated against principal override rights."},
	{ID: goRights.MetricDisabledDenied, Name: "gorights_disabled_denied_total", Help: "Decisions denied because the principal is disabled."},
	{ID: goRights.MetricReloadSuccess, Name: "gorights_reload_success_total", Help: "Successful tier rights reloads."},
	{ID: goRights.MetricReloadFailure, Name: "gorights_reload_failure_total", Help: "Failed tier rights reloads."},
	{ID: goRights.MetricRightsUpdated, Name: "gorights_rights_updated_total", Help: "Tier rights writes."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goRights.MetricDecisionLatency, Name: "gorights_decision_latency_seconds", Help: "Decision latency histogram."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds. The last
// bucket is open.
var HistogramUpperBounds = []float64{
	0.000001,
	0.000005,
	0.00001,
	0.00005,
	0.0001,
	0.0005,
	0.001,
}

// HistogramBoundSuffix names each bucket, +Inf included, for exporters that
// flatten buckets into separate instruments.
var HistogramBoundSuffix = []string{
	"1us",
	"5us",
	"10us",
	"50us",
	"100us",
	"500us",
	"1ms",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, zero-filling short input.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
