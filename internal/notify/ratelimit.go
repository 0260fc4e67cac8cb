package notify

import (
	"fmt"
	"time"
)

// RateLimiter enforces a minimum interval between dispatched
// notifications.
type RateLimiter struct {
	window   time.Duration
	lastSent time.Time
	hasSent  bool
}

// NewRateLimiter builds a limiter with the given minimum interval.
func NewRateLimiter(window time.Duration) *RateLimiter {
	return &RateLimiter{window: window}
}

// ShouldAllow reports whether a notification may be sent at now.
func (r *RateLimiter) ShouldAllow(now time.Time) bool {
	if !r.hasSent {
		return true
	}
	return now.Sub(r.lastSent) >= r.window
}

// RecordSent marks a dispatch at now, restarting the window.
func (r *RateLimiter) RecordSent(now time.Time) {
	r.lastSent = now
	r.hasSent = true
}

// TimeUntilNext returns how long until the window reopens, or zero if it
// is already open.
func (r *RateLimiter) TimeUntilNext(now time.Time) time.Duration {
	if !r.hasSent {
		return 0
	}
	remaining := r.window - now.Sub(r.lastSent)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reset clears the limiter back to its never-sent state.
func (r *RateLimiter) Reset() {
	r.hasSent = false
	r.lastSent = time.Time{}
}

// QuietHours is a time-of-day window during which notifications are
// suppressed. Overnight ranges (start > end) are handled correctly.
type QuietHours struct {
	StartHour, StartMin int
	EndHour, EndMin      int
}

// IsActive reports whether now's local time-of-day falls within the quiet
// window.
func (q QuietHours) IsActive(now time.Time) bool {
	cur := now.Hour()*60 + now.Minute()
	start := q.StartHour*60 + q.StartMin
	end := q.EndHour*60 + q.EndMin

	if start <= end {
		return cur >= start && cur <= end
	}
	return cur >= start || cur <= end
}

// ParseQuietHours parses "HH:MM-HH:MM".
func ParseQuietHours(s string) (QuietHours, error) {
	var sh, sm, eh, em int
	_, err := fmt.Sscanf(s, "%d:%d-%d:%d", &sh, &sm, &eh, &em)
	if err != nil {
		return QuietHours{}, fmt.Errorf("invalid quiet hours %q: expected HH:MM-HH:MM", s)
	}
	return QuietHours{StartHour: sh, StartMin: sm, EndHour: eh, EndMin: em}, nil
}

// String renders back to "HH:MM-HH:MM".
func (q QuietHours) String() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", q.StartHour, q.StartMin, q.EndHour, q.EndMin)
}
