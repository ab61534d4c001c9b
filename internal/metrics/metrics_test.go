package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestDisabledMetricsAreNoOps(t *testing.T) {
	m := New(Config{})
	m.Inc(MetricDecisionGrant)
	m.Observe(MetricDecisionLatency, time.Microsecond)
	if m.Value(MetricDecisionGrant) != 0 {
		t.Fatalf("disabled metrics must not count")
	}
	if s := m.Snapshot(); len(s.Counters) != 0 || len(s.Histograms) != 0 {
		t.Fatalf("disabled snapshot should be empty, got %+v", s)
	}

	var nilMetrics *Metrics
	nilMetrics.Inc(MetricDecisionDeny)
	if nilMetrics.Enabled() || nilMetrics.Value(MetricDecisionDeny) != 0 {
		t.Fatalf("nil metrics must be inert")
	}
}

func TestConcurrentIncrements(t *testing.T) {
	m := New(Config{Enabled: true})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				m.Inc(MetricDecisionDeny)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricDecisionDeny); got != 16000 {
		t.Fatalf("expected 16000, got %d", got)
	}
	if got := m.Snapshot().Counters[MetricDecisionDeny]; got != 16000 {
		t.Fatalf("snapshot expected 16000, got %d", got)
	}
}

func TestLatencyHistogram(t *testing.T) {
	m := New(Config{Enabled: true, EnableLatency: true})
	m.Observe(MetricDecisionLatency, 500*time.Nanosecond)
	m.Observe(MetricDecisionLatency, 7*time.Microsecond)
	m.Observe(MetricDecisionLatency, 2*time.Millisecond)
	m.Observe(MetricDecisionGrant, time.Second)

	buckets := m.Snapshot().Histograms[MetricDecisionLatency]
	want := []uint64{1, 0, 1, 0, 0, 0, 0, 1}
	for i := range want {
		if buckets[i] != want[i] {
			t.Fatalf("bucket %d: expected %d, got %d (%v)", i, want[i], buckets[i], buckets)
		}
	}

	wantSum := 500*time.Nanosecond + 7*time.Microsecond + 2*time.Millisecond
	if got := m.Snapshot().HistogramSums[MetricDecisionLatency]; got != wantSum {
		t.Fatalf("histogram sum = %v, want %v", got, wantSum)
	}
}

func TestBucketIndexBounds(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want int
	}{
		{0, 0},
		{time.Microsecond, 0},
		{5 * time.Microsecond, 1},
		{10 * time.Microsecond, 2},
		{50 * time.Microsecond, 3},
		{100 * time.Microsecond, 4},
		{500 * time.Microsecond, 5},
		{time.Millisecond, 6},
		{time.Second, 7},
	}
	for _, tt := range tests {
		if got := BucketIndex(tt.d); got != tt.want {
			t.Fatalf("BucketIndex(%v) = %d, want %d", tt.d, got, tt.want)
		}
	}
}
