// Package otel publishes engine metrics as OpenTelemetry observable
// instruments.
//
// [NewExporter] registers one Int64ObservableCounter per engine counter and,
// for the latency histogram, one Int64ObservableGauge per cumulative bucket
// plus a count gauge. A single callback reads Engine.MetricsSnapshot on each
// collection. Callers own the MeterProvider.
package otel
