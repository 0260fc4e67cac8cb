package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/willibrandon/pgtail/internal/record"
)

var relativeTimeRe = regexp.MustCompile(`(?i)^(\d+)([smhd])$`)
var timeOnlyRe = regexp.MustCompile(`^(\d{2}):(\d{2})(?::(\d{2}))?$`)

// ParseTimePoint parses a single time specification:
//   - relative: 5m, 30s, 2h, 1d (duration before now)
//   - time-only: 14:30, 14:30:45 (today, local time, converted to UTC)
//   - ISO-8601, with offset or Z suffix
func ParseTimePoint(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("time value cannot be empty")
	}

	if m := relativeTimeRe.FindStringSubmatch(value); m != nil {
		amount, _ := strconv.Atoi(m[1])
		var d time.Duration
		switch strings.ToLower(m[2]) {
		case "s":
			d = time.Duration(amount) * time.Second
		case "m":
			d = time.Duration(amount) * time.Minute
		case "h":
			d = time.Duration(amount) * time.Hour
		case "d":
			d = time.Duration(amount) * 24 * time.Hour
		}
		return time.Now().UTC().Add(-d), nil
	}

	if m := timeOnlyRe.FindStringSubmatch(value); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		second := 0
		if m[3] != "" {
			second, _ = strconv.Atoi(m[3])
		}
		if hour > 23 || minute > 59 || second > 59 {
			return time.Time{}, fmt.Errorf("invalid time %q: hours must be 0-23, minutes/seconds 0-59", value)
		}
		now := time.Now()
		local := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, second, 0, time.Local)
		return local.UTC(), nil
	}

	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf(
		"invalid time format %q: supported are relative (5m, 30s, 2h, 1d), time-only (14:30), or ISO-8601", value)
}

// TimeWindow is an optional [since, until] bound. Either end may be absent.
type TimeWindow struct {
	Since    *time.Time
	Until    *time.Time
	Original string
}

// ParseTimeWindow builds a one-sided or bounded time window. spec is one of
// "since X", "until X", or "between X Y".
func ParseTimeWindow(spec string) (TimeWindow, error) {
	fields := strings.Fields(spec)
	switch {
	case len(fields) == 2 && strings.EqualFold(fields[0], "since"):
		t, err := ParseTimePoint(fields[1])
		if err != nil {
			return TimeWindow{}, err
		}
		return TimeWindow{Since: &t, Original: spec}, nil
	case len(fields) == 2 && strings.EqualFold(fields[0], "until"):
		t, err := ParseTimePoint(fields[1])
		if err != nil {
			return TimeWindow{}, err
		}
		return TimeWindow{Until: &t, Original: spec}, nil
	case len(fields) == 3 && strings.EqualFold(fields[0], "between"):
		a, err := ParseTimePoint(fields[1])
		if err != nil {
			return TimeWindow{}, err
		}
		b, err := ParseTimePoint(fields[2])
		if err != nil {
			return TimeWindow{}, err
		}
		if !a.Before(b) {
			return TimeWindow{}, fmt.Errorf("start time %s must be before end time %s", fields[1], fields[2])
		}
		return TimeWindow{Since: &a, Until: &b, Original: spec}, nil
	default:
		t, err := ParseTimePoint(spec)
		if err != nil {
			return TimeWindow{}, err
		}
		return TimeWindow{Since: &t, Original: spec}, nil
	}
}

// IsActive reports whether either bound is set.
func (w TimeWindow) IsActive() bool {
	return w.Since != nil || w.Until != nil
}

// Matches reports whether rec's timestamp falls within the window. Records
// without a timestamp never match an active window.
func (w TimeWindow) Matches(rec record.LogRecord) bool {
	if !w.IsActive() {
		return true
	}
	if !rec.HasTime {
		return false
	}
	if w.Since != nil && rec.Timestamp.Before(*w.Since) {
		return false
	}
	if w.Until != nil && rec.Timestamp.After(*w.Until) {
		return false
	}
	return true
}

// FormatDescription renders a human-readable summary of the window.
func (w TimeWindow) FormatDescription() string {
	const layout = "15:04:05"
	switch {
	case w.Since != nil && w.Until != nil:
		return fmt.Sprintf("between %s and %s", w.Since.Local().Format(layout), w.Until.Local().Format(layout))
	case w.Since != nil:
		return fmt.Sprintf("since %s", w.Since.Local().Format(layout))
	case w.Until != nil:
		return fmt.Sprintf("until %s", w.Until.Local().Format(layout))
	default:
		return ""
	}
}
