package aggregate

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/guptarohit/asciigraph"
)

// ErrorTrendSparkline renders the last `minutes` of per-minute error counts
// as a compact four-row sparkline plot, for an analytics snapshot.
func (s *ErrorStats) ErrorTrendSparkline(minutes int, now time.Time) string {
	buckets := s.TrendBuckets(minutes, now)
	data := make([]float64, len(buckets))
	for i, b := range buckets {
		data[i] = float64(b.Count)
	}
	return plotLine(data)
}

// FormatSummary renders a one-line human-readable summary of admitted
// error-class events.
func (s *ErrorStats) FormatSummary() string {
	count := s.EventCount()
	if count == 0 {
		return "No error-class events recorded."
	}
	return fmt.Sprintf("%s error-class event(s) recorded this session.", humanize.Comma(int64(count)))
}

// ConnectionTrendSparkline renders the last `minutes` of bucketed connect
// counts as a compact four-row sparkline plot.
func (s *ConnectionStats) ConnectionTrendSparkline(minutes, bucketSizeMinutes int, now time.Time) string {
	buckets := s.TrendBuckets(minutes, bucketSizeMinutes, now)
	data := make([]float64, len(buckets))
	for i, b := range buckets {
		data[i] = float64(b.Connects)
	}
	return plotLine(data)
}

// FormatSummary renders a one-line human-readable summary of connection
// activity.
func (s *ConnectionStats) FormatSummary() string {
	active := s.ActiveCount()
	return fmt.Sprintf("%s active connection(s).", humanize.Comma(int64(active)))
}

// plotLine renders data as a compact multi-row sparkline. asciigraph
// requires at least two points; a shorter series is padded with a
// leading zero.
func plotLine(data []float64) string {
	if len(data) == 0 {
		return ""
	}
	if len(data) == 1 {
		data = append([]float64{0}, data...)
	}
	return asciigraph.Plot(data, asciigraph.Height(4))
}
