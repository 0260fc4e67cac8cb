package aggregate

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

var durationRe = regexp.MustCompile(`duration:\s*([\d.]+)\s*(ms|s)\b`)

// ExtractDurationMS pulls a "duration: N ms" or "duration: N s" value out
// of a log message, normalized to milliseconds.
func ExtractDurationMS(message string) (float64, bool) {
	m := durationRe.FindStringSubmatch(message)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	if m[2] == "s" {
		v *= 1000
	}
	return v, true
}

// maxDurationSamples bounds the ring buffer backing DurationStats, so a
// long-running session's query-duration history doesn't grow unbounded.
const maxDurationSamples = 100000

// DurationStats maintains a bounded ring buffer of duration samples,
// deriving sum/min/max and a lazily-sorted percentile cache from it.
type DurationStats struct {
	mu     sync.Mutex
	buffer *sampleRing

	sortedCache []float64
	sum         float64
	min         float64
	max         float64
	hasMin      bool
	dirty       bool
}

// NewDurationStats constructs an empty DurationStats collector.
func NewDurationStats() *DurationStats {
	return &DurationStats{buffer: newSampleRing(maxDurationSamples), dirty: true}
}

// Add records a new duration sample in milliseconds.
func (d *DurationStats) Add(ms float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buffer.push(time.Now(), ms)
	d.dirty = true
}

// Clear resets every counter and sample.
func (d *DurationStats) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buffer.clear()
	d.sortedCache = nil
	d.sum, d.min, d.max = 0, 0, 0
	d.hasMin = false
	d.dirty = true
}

// Count returns the number of retained samples.
func (d *DurationStats) Count() int {
	return d.buffer.len()
}

// recompute rebuilds the sorted cache and the sum/min/max summary from the
// buffer's current contents. Must be called with d.mu held.
func (d *DurationStats) recompute() {
	if !d.dirty {
		return
	}
	values := d.buffer.values()
	d.sortedCache = append(d.sortedCache[:0], values...)
	sort.Float64s(d.sortedCache)

	d.sum, d.hasMin, d.max = 0, false, 0
	for _, v := range values {
		d.sum += v
		if !d.hasMin || v < d.min {
			d.min = v
			d.hasMin = true
		}
		if v > d.max {
			d.max = v
		}
	}
	d.dirty = false
}

// Min, Max, Sum, Average return the current sample-set aggregates.
func (d *DurationStats) Min() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recompute()
	return d.min
}

func (d *DurationStats) Max() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recompute()
	return d.max
}

func (d *DurationStats) Sum() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recompute()
	return d.sum
}

func (d *DurationStats) Average() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recompute()
	n := d.buffer.len()
	if n == 0 {
		return 0
	}
	return d.sum / float64(n)
}

// quantileInclusive reproduces Python's statistics.quantiles(data, n=100,
// method="inclusive")[i-1], i.e. the i-th percentile (1 <= i <= 99) using
// linear interpolation over the full sorted sample range.
func quantileInclusive(sorted []float64, i int) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	m := n - 1
	const scale = 100
	j := (i * m) / scale
	delta := (i * m) % scale
	if j+1 >= n {
		return sorted[n-1]
	}
	return (sorted[j]*float64(scale-delta) + sorted[j+1]*float64(delta)) / float64(scale)
}

// P50, P95, P99 return the corresponding percentile of recorded durations.
// With zero samples they return 0; with exactly one sample they return it.
func (d *DurationStats) percentile(i int) float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recompute()
	if len(d.sortedCache) == 0 {
		return 0
	}
	return quantileInclusive(d.sortedCache, i)
}

func (d *DurationStats) P50() float64 { return d.percentile(50) }
func (d *DurationStats) P95() float64 { return d.percentile(95) }
func (d *DurationStats) P99() float64 { return d.percentile(99) }

// Sparkline renders the n most recent duration samples as a compact
// four-row asciigraph plot, chronological left to right.
func (d *DurationStats) Sparkline(n int) string {
	return plotLine(d.buffer.recent(n))
}

// SparklineWindow renders duration samples taken within the last window
// as a compact four-row asciigraph plot.
func (d *DurationStats) SparklineWindow(window time.Duration) string {
	return plotLine(d.buffer.sinceWindow(window))
}

// FormatSummary renders a multi-line human-readable summary of the
// collected duration statistics.
func (d *DurationStats) FormatSummary() string {
	count := d.Count()
	if count == 0 {
		return "No query durations recorded."
	}
	return fmt.Sprintf(
		"Samples: %s\nMin: %.2fms\nMax: %.2fms\nAvg: %.2fms\np50: %.2fms\np95: %.2fms\np99: %.2fms",
		humanize.Comma(int64(count)), d.Min(), d.Max(), d.Average(), d.P50(), d.P95(), d.P99(),
	)
}
