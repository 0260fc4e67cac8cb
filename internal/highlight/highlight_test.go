package highlight

import (
	"strings"
	"testing"
)

func TestChainHighlightFindsTimestampAndNumber(t *testing.T) {
	c := NewChain(DurationThresholds{WarnMS: 100, SlowMS: 1000, CriticalMS: 5000}, nil)
	line := "2024-01-15 10:30:00.123 UTC [12345] LOG: retried 3 times"
	spans := c.Highlight(line)
	if len(spans) == 0 {
		t.Fatal("expected at least one span")
	}
	foundTimestamp := false
	for _, sp := range spans {
		if strings.HasPrefix(line[sp.Start:sp.End], "2024-01-15") {
			foundTimestamp = true
		}
	}
	if !foundTimestamp {
		t.Error("expected a timestamp span")
	}
}

func TestChainHighlightRespectsDisabledSet(t *testing.T) {
	c := NewChain(DurationThresholds{WarnMS: 100, SlowMS: 1000, CriticalMS: 5000}, map[string]bool{"numbers": false})
	line := "value 42 recorded"
	spans := c.Highlight(line)
	for _, sp := range spans {
		if line[sp.Start:sp.End] == "42" {
			t.Error("numbers highlighter should be disabled")
		}
	}
}

func TestRenderRoundTripsPlainTextWithNoSpans(t *testing.T) {
	line := "no styling applied here"
	if got := Render(line, nil); got != line {
		t.Errorf("Render with no spans = %q, want %q", got, line)
	}
}

func TestStripRemovesStyleAppliedByRender(t *testing.T) {
	line := "duration: 2000 ms"
	spans := []Span{{Start: 10, End: 14, Style: styleCritical}}
	rendered := Render(line, spans)
	if rendered == line {
		t.Fatal("expected Render to apply ANSI styling")
	}
	if got := Strip(rendered); got != line {
		t.Errorf("Strip(Render(line)) = %q, want %q", got, line)
	}
}

func TestClassifyDurationTiers(t *testing.T) {
	thresholds := DurationThresholds{WarnMS: 100, SlowMS: 1000, CriticalMS: 5000}
	cases := []struct {
		ms   float64
		want string
	}{
		{50, "normal"},
		{150, "normal"},
		{1500, "warning"},
		{6000, "critical"},
	}
	for _, c := range cases {
		if got := classifyDuration(c.ms, thresholds).String(); got != c.want {
			t.Errorf("classifyDuration(%v) = %q, want %q", c.ms, got, c.want)
		}
	}
}

func TestDurationHighlighterSkipsBelowWarnThreshold(t *testing.T) {
	c := NewChain(DurationThresholds{WarnMS: 100, SlowMS: 1000, CriticalMS: 5000}, nil)
	spans := c.Highlight("duration: 10 ms  statement: SELECT 1")
	for _, sp := range spans {
		if sp.Style == styleWarn || sp.Style == styleSlow || sp.Style == styleCritical {
			t.Error("expected no duration span below the warn threshold")
		}
	}
}
