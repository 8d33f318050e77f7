package goSignup

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledIsNoOp(t *testing.T) {
	m := NewMetrics(MetricsConfig{})

	m.Inc(MetricSignupStarted)
	m.Observe(MetricBackendLatency, time.Second)

	if m.Value(MetricSignupStarted) != 0 {
		t.Fatal("disabled metrics must not count")
	}
	snap := m.Snapshot()
	if len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatalf("disabled snapshot must be empty: %+v", snap)
	}
}

func TestMetricsCountersConcurrent(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				m.Inc(MetricOtpRequested)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricOtpRequested); got != 8000 {
		t.Fatalf("expected 8000, got %d", got)
	}
}

func TestMetricsLatencyHistogram(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	m.Observe(MetricBackendLatency, 3*time.Millisecond)
	m.Observe(MetricBackendLatency, 40*time.Millisecond)
	m.Observe(MetricBackendLatency, 2*time.Second)

	snap := m.Snapshot()
	buckets, ok := snap.Histograms[MetricBackendLatency]
	if !ok {
		t.Fatal("expected latency histogram in snapshot")
	}
	if buckets[0] != 1 || buckets[3] != 1 || buckets[7] != 1 {
		t.Fatalf("unexpected bucket spread %v", buckets)
	}

	// Only the latency metric carries a histogram.
	m.Observe(MetricOtpRequested, time.Second)
	snap = m.Snapshot()
	if len(snap.Histograms) != 1 {
		t.Fatalf("expected a single histogram, got %d", len(snap.Histograms))
	}
}

func TestObserveBackendUsesEngineClock(t *testing.T) {
	e := newTestEngine(t, &fakeAuthAPI{})
	e.metrics = NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	now := freezeClock(e, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	start := e.now()
	*now = now.Add(40 * time.Millisecond)
	e.observeBackend(start, nil)

	snap := e.metrics.Snapshot()
	buckets, ok := snap.Histograms[MetricBackendLatency]
	if !ok {
		t.Fatal("expected latency histogram in snapshot")
	}
	// The latency comes from the injected clock, so the 40ms delta lands
	// in its bucket instead of a wall-clock measurement.
	if buckets[3] != 1 {
		t.Fatalf("expected the 40ms observation in bucket 3, got %v", buckets)
	}
}

func TestBucketIndexBoundaries(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want int
	}{
		{time.Millisecond, 0},
		{5 * time.Millisecond, 0},
		{6 * time.Millisecond, 1},
		{25 * time.Millisecond, 2},
		{50 * time.Millisecond, 3},
		{100 * time.Millisecond, 4},
		{250 * time.Millisecond, 5},
		{500 * time.Millisecond, 6},
		{time.Minute, 7},
	}

	for _, tc := range cases {
		if got := bucketIndex(tc.d); got != tc.want {
			t.Fatalf("%v: got bucket %d, want %d", tc.d, got, tc.want)
		}
	}
}
