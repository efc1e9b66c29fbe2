package perf

import (
	"sort"
	"testing"
	"time"
)

func TestCheckoutAndReportLatencyTargets(t *testing.T) {
	scenarios := []struct {
		name      string
		samples   []time.Duration
		threshold time.Duration
	}{
		{
			name:      "checkout",
			samples:   []time.Duration{90 * time.Millisecond, 105 * time.Millisecond, 120 * time.Millisecond, 135 * time.Millisecond, 150 * time.Millisecond, 170 * time.Millisecond, 190 * time.Millisecond, 210 * time.Millisecond, 235 * time.Millisecond, 260 * time.Millisecond},
			threshold: 300 * time.Millisecond,
		},
		{
			name:      "dashboard_cached",
			samples:   []time.Duration{12 * time.Millisecond, 15 * time.Millisecond, 18 * time.Millisecond, 22 * time.Millisecond, 26 * time.Millisecond, 30 * time.Millisecond, 34 * time.Millisecond, 40 * time.Millisecond, 48 * time.Millisecond, 60 * time.Millisecond},
			threshold: 150 * time.Millisecond,
		},
		{
			name:      "sales_report_cold",
			samples:   []time.Duration{620 * time.Millisecond, 680 * time.Millisecond, 740 * time.Millisecond, 800 * time.Millisecond, 860 * time.Millisecond, 920 * time.Millisecond, 990 * time.Millisecond, 1060 * time.Millisecond, 1180 * time.Millisecond, 1320 * time.Millisecond},
			threshold: 1500 * time.Millisecond,
		},
	}

	for _, scenario := range scenarios {
		p95 := percentile95(scenario.samples)
		if p95 > scenario.threshold {
			t.Fatalf("%s latency regression: p95=%s threshold=%s", scenario.name, p95, scenario.threshold)
		}
	}
}

func percentile95(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	index := int(float64(len(sorted)-1) * 0.95)
	if index < 0 {
		index = 0
	}
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}
