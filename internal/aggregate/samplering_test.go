package aggregate

import (
	"testing"
	"time"
)

func TestSampleRingEvictsOldestPastCapacity(t *testing.T) {
	r := newSampleRing(3)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, v := range []float64{1, 2, 3, 4} {
		r.push(base.Add(time.Duration(i)*time.Second), v)
	}
	if r.len() != 3 {
		t.Fatalf("expected capacity-bounded length 3, got %d", r.len())
	}
	if got := r.values(); len(got) != 3 || got[0] != 2 || got[2] != 4 {
		t.Fatalf("expected the oldest sample (1) to be evicted, got %v", got)
	}
}

func TestSampleRingRecentReturnsChronologicalTail(t *testing.T) {
	r := newSampleRing(10)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, v := range []float64{1, 2, 3, 4, 5} {
		r.push(base.Add(time.Duration(i)*time.Second), v)
	}
	got := r.recent(2)
	if len(got) != 2 || got[0] != 4 || got[1] != 5 {
		t.Fatalf("expected the 2 most recent samples in order, got %v", got)
	}
}

func TestSampleRingSinceWindowExcludesOlderSamples(t *testing.T) {
	r := newSampleRing(10)
	now := time.Now()
	r.push(now.Add(-2*time.Hour), 100)
	r.push(now.Add(-10*time.Second), 200)

	got := r.sinceWindow(time.Minute)
	if len(got) != 1 || got[0] != 200 {
		t.Fatalf("expected only the recent sample within the window, got %v", got)
	}
}

func TestSampleRingClearResetsState(t *testing.T) {
	r := newSampleRing(5)
	r.push(time.Now(), 42)
	r.clear()
	if r.len() != 0 {
		t.Fatalf("expected 0 samples after clear, got %d", r.len())
	}
	if got := r.values(); got != nil {
		t.Fatalf("expected nil values after clear, got %v", got)
	}
}
