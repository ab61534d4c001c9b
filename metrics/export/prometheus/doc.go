// Package prometheus exposes engine metrics as a client_golang
// [prom.Collector].
//
// [Exporter] reads Engine.MetricsSnapshot on every scrape. Counters are named
// gorights_*_total; the decision latency histogram is
// gorights_decision_latency_seconds. The exporter never registers itself in
// the global registry: callers register it, or mount [Exporter.Handler],
// which serves a private registry.
package prometheus
