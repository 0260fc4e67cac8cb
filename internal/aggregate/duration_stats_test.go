package aggregate

import (
	"testing"
	"time"
)

func TestDurationStatsMinMaxAverage(t *testing.T) {
	d := NewDurationStats()
	values := []float64{10, 250, 5, 900, 42}
	for _, v := range values {
		d.Add(v)
	}

	wantSum := 0.0
	wantMin := values[0]
	wantMax := values[0]
	for _, v := range values {
		wantSum += v
		if v < wantMin {
			wantMin = v
		}
		if v > wantMax {
			wantMax = v
		}
	}
	wantAvg := wantSum / float64(len(values))

	if d.Min() != wantMin {
		t.Errorf("Min() = %v, want %v", d.Min(), wantMin)
	}
	if d.Max() != wantMax {
		t.Errorf("Max() = %v, want %v", d.Max(), wantMax)
	}
	if d.Average() != wantAvg {
		t.Errorf("Average() = %v, want %v", d.Average(), wantAvg)
	}
}

func TestDurationStatsEmptyAndSingle(t *testing.T) {
	d := NewDurationStats()
	if d.P50() != 0 || d.P95() != 0 || d.P99() != 0 {
		t.Errorf("expected zero percentiles with no samples")
	}

	d.Add(42)
	if d.P50() != 42 || d.P95() != 42 || d.P99() != 42 {
		t.Errorf("expected sole-value percentiles with one sample, got p50=%v p95=%v p99=%v", d.P50(), d.P95(), d.P99())
	}
}

func TestDurationStatsClearResets(t *testing.T) {
	d := NewDurationStats()
	d.Add(100)
	d.Add(200)
	d.Clear()
	if d.Count() != 0 || d.Min() != 0 || d.Max() != 0 {
		t.Errorf("expected zeroed stats after Clear")
	}
}

func TestDurationStatsSparklineUsesRecentSamples(t *testing.T) {
	d := NewDurationStats()
	for _, v := range []float64{1, 2, 3, 4, 5} {
		d.Add(v)
	}
	if got := d.Sparkline(3); got == "" {
		t.Errorf("expected a non-empty sparkline for 3 recent samples")
	}
	if got := d.Sparkline(0); got != "" {
		t.Errorf("expected empty sparkline for n=0, got %q", got)
	}
}

func TestDurationStatsSparklineWindowCoversRecentSamples(t *testing.T) {
	d := NewDurationStats()
	for _, v := range []float64{10, 20, 30} {
		d.Add(v)
	}
	if got := d.SparklineWindow(time.Hour); got == "" {
		t.Errorf("expected a non-empty sparkline for samples within the window")
	}
	if got := d.SparklineWindow(0); got != "" {
		t.Errorf("expected empty sparkline for a zero window, got %q", got)
	}
}

func TestExtractDurationMS(t *testing.T) {
	cases := []struct {
		msg  string
		want float64
		ok   bool
	}{
		{"duration: 123.45 ms  statement: SELECT 1", 123.45, true},
		{"duration: 2.5 s  statement: SELECT 1", 2500, true},
		{"no duration here", 0, false},
	}
	for _, c := range cases {
		got, ok := ExtractDurationMS(c.msg)
		if ok != c.ok || (ok && got != c.want) {
			t.Errorf("ExtractDurationMS(%q) = (%v,%v), want (%v,%v)", c.msg, got, ok, c.want, c.ok)
		}
	}
}
