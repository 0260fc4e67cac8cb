package notify

import (
	"fmt"
	"time"

	"github.com/willibrandon/pgtail/internal/aggregate"
	"github.com/willibrandon/pgtail/internal/record"
)

// Notifier dispatches a notification to the external platform. Send must
// be safe to call repeatedly and should not block beyond the supplied
// timeout's intent; the manager does not itself enforce a timeout on
// implementations that choose to ignore context.
type Notifier interface {
	Send(title, body, subtitle string) error
}

// Manager evaluates every admitted record against the configured rules,
// in fixed order (Level, Pattern, ErrorRate, SlowQuery), subject to a
// single global rate limiter plus ErrorRate's own 60-second self-suppression.
type Manager struct {
	config   Config
	notifier Notifier
	global   *RateLimiter
	errRate  *RateLimiter

	errorWindow []time.Time // ERROR-level timestamps in the last minute
}

// NewManager builds a Manager with the standard 5-second global rate limit
// and 60-second ErrorRate self-suppression.
func NewManager(config Config, notifier Notifier) *Manager {
	return &Manager{
		config:   config,
		notifier: notifier,
		global:   NewRateLimiter(5 * time.Second),
		errRate:  NewRateLimiter(60 * time.Second),
	}
}

// SetConfig replaces the active rule configuration.
func (m *Manager) SetConfig(c Config) {
	m.config = c
}

// Check evaluates rec against the rule set and, on the first match,
// dispatches through the notifier subject to rate limiting and quiet
// hours. Called on every record, not only filter-passing ones.
func (m *Manager) Check(rec record.LogRecord, now time.Time) {
	if !m.config.Enabled {
		return
	}
	if m.config.QuietHours != nil && m.config.QuietHours.IsActive(now) {
		return
	}

	if m.config.LevelRule != nil && m.config.LevelRule.Matches(rec) {
		m.dispatch("Log level alert", fmt.Sprintf("%s: %s", rec.Level, rec.Message), now, false)
		return
	}

	for _, r := range m.config.PatternRule {
		if r.Matches(rec) {
			m.dispatch("Pattern match", rec.Message, now, false)
			return
		}
	}

	if m.config.ErrorRate != nil {
		m.recordErrorForRate(rec, now)
		if m.errorRateExceeded(now, m.config.ErrorRate.ThresholdPerMinute) {
			m.dispatch("Error rate exceeded",
				fmt.Sprintf("more than %d errors/minute", m.config.ErrorRate.ThresholdPerMinute), now, true)
			return
		}
	}

	if m.config.SlowQuery != nil {
		if ms, ok := aggregate.ExtractDurationMS(rec.Message); ok && ms >= float64(m.config.SlowQuery.ThresholdMS) {
			m.dispatch("Slow query", fmt.Sprintf("%.0fms: %s", ms, rec.Message), now, false)
			return
		}
	}
}

func (m *Manager) recordErrorForRate(rec record.LogRecord, now time.Time) {
	if rec.Level != record.Error {
		return
	}
	m.errorWindow = append(m.errorWindow, now)
	cutoff := now.Add(-time.Minute)
	i := 0
	for i < len(m.errorWindow) && m.errorWindow[i].Before(cutoff) {
		i++
	}
	m.errorWindow = m.errorWindow[i:]
}

func (m *Manager) errorRateExceeded(now time.Time, threshold int) bool {
	return len(m.errorWindow) > threshold
}

// dispatch applies the global rate limiter, and for ErrorRate the
// additional 60-second self-suppression, before calling the notifier.
func (m *Manager) dispatch(title, body string, now time.Time, isErrorRate bool) {
	if isErrorRate && !m.errRate.ShouldAllow(now) {
		return
	}
	if !m.global.ShouldAllow(now) {
		return
	}

	_ = m.notifier.Send(title, body, "")
	m.global.RecordSent(now)
	if isErrorRate {
		m.errRate.RecordSent(now)
	}
}

// SendTest dispatches a test notification bypassing both rate limiting and
// quiet hours.
func (m *Manager) SendTest() error {
	return m.notifier.Send("pgtail test notification", "Notifications are configured correctly.", "")
}
