package notify

import (
	"testing"
	"time"

	"github.com/willibrandon/pgtail/internal/record"
)

type fakeNotifier struct {
	sent []string
}

func (f *fakeNotifier) Send(title, body, subtitle string) error {
	f.sent = append(f.sent, title)
	return nil
}

func TestErrorRateNotificationCap(t *testing.T) {
	notifier := &fakeNotifier{}
	cfg := Config{
		Enabled:   true,
		ErrorRate: &Rule{Kind: RuleErrorRate, ThresholdPerMinute: 5},
	}
	m := NewManager(cfg, notifier)

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 20; i++ {
		rec := record.LogRecord{Level: record.Error, Message: "boom", Raw: "boom"}
		m.Check(rec, base.Add(time.Duration(i)*50*time.Millisecond))
	}

	if len(notifier.sent) != 1 {
		t.Fatalf("expected exactly 1 dispatched notification, got %d", len(notifier.sent))
	}

	// Within the next 60 seconds, no further ErrorRate notification fires.
	for i := 0; i < 20; i++ {
		rec := record.LogRecord{Level: record.Error, Message: "boom", Raw: "boom"}
		m.Check(rec, base.Add(time.Second+time.Duration(i)*time.Second))
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("expected ErrorRate suppression within 60s, got %d sends", len(notifier.sent))
	}
}

func TestGlobalRateLimiterEnforcesFiveSeconds(t *testing.T) {
	limiter := NewRateLimiter(5 * time.Second)
	now := time.Now()
	if !limiter.ShouldAllow(now) {
		t.Fatal("expected first send to be allowed")
	}
	limiter.RecordSent(now)
	if limiter.ShouldAllow(now.Add(4 * time.Second)) {
		t.Fatal("expected send within 5s to be blocked")
	}
	if !limiter.ShouldAllow(now.Add(5 * time.Second)) {
		t.Fatal("expected send at exactly 5s to be allowed")
	}
}

func TestQuietHoursOvernightRange(t *testing.T) {
	q := QuietHours{StartHour: 22, StartMin: 0, EndHour: 6, EndMin: 0}
	late := time.Date(2024, 1, 1, 23, 30, 0, 0, time.UTC)
	early := time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC)
	midday := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	if !q.IsActive(late) || !q.IsActive(early) {
		t.Fatal("expected overnight quiet hours to be active")
	}
	if q.IsActive(midday) {
		t.Fatal("expected quiet hours inactive at midday")
	}
}
