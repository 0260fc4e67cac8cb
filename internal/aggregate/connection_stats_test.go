package aggregate

import (
	"testing"
	"time"

	"github.com/willibrandon/pgtail/internal/record"
)

func TestConnectionStatsConnectAndDisconnect(t *testing.T) {
	s := NewConnectionStats()

	connect := record.LogRecord{
		Level: record.Log, PID: 100, HasTime: true, Timestamp: time.Now(),
		Message: "connection authorized: user=alice database=app application_name=psql",
	}
	ev, ok := s.Admit(connect)
	if !ok || ev.Type != Connect {
		t.Fatalf("expected connect event, got ok=%v ev=%+v", ok, ev)
	}
	if s.ActiveCount() != 1 {
		t.Fatalf("expected 1 active connection, got %d", s.ActiveCount())
	}

	disconnect := record.LogRecord{
		Level: record.Log, PID: 100, HasTime: true, Timestamp: time.Now(),
		Message: "disconnection: session time: 0:01:30.500 user=alice database=app host=127.0.0.1 port=5432",
	}
	ev2, ok2 := s.Admit(disconnect)
	if !ok2 || ev2.Type != Disconnect {
		t.Fatalf("expected disconnect event, got ok=%v ev=%+v", ok2, ev2)
	}
	if !ev2.HasDuration || ev2.DurationSeconds != 90.5 {
		t.Fatalf("expected 90.5s session duration, got %v hasDuration=%v", ev2.DurationSeconds, ev2.HasDuration)
	}
	if s.ActiveCount() != 0 {
		t.Fatalf("expected 0 active connections after disconnect, got %d", s.ActiveCount())
	}
}

func TestConnectionStatsFailedConnection(t *testing.T) {
	s := NewConnectionStats()
	rec := record.LogRecord{
		Level: record.Fatal, PID: 200,
		Message: "password authentication failed for user \"bob\"",
	}
	ev, ok := s.Admit(rec)
	if !ok || ev.Type != ConnectionFailed {
		t.Fatalf("expected connection-failed event, got ok=%v ev=%+v", ok, ev)
	}
}

func TestConnectionStatsActiveByDatabase(t *testing.T) {
	s := NewConnectionStats()
	s.Admit(record.LogRecord{PID: 1, Message: "connection authorized: user=a database=db1"})
	s.Admit(record.LogRecord{PID: 2, Message: "connection authorized: user=b database=db1"})
	s.Admit(record.LogRecord{PID: 3, Message: "connection authorized: user=c database=db2"})

	byDB := s.ActiveByDatabase()
	if byDB["db1"] != 2 || byDB["db2"] != 1 {
		t.Fatalf("unexpected grouping: %+v", byDB)
	}
}

func TestConnectionStatsClearResetsLiveAndEvents(t *testing.T) {
	s := NewConnectionStats()
	s.Admit(record.LogRecord{PID: 1, Message: "connection authorized: user=a database=db1"})
	s.Clear()
	if s.ActiveCount() != 0 {
		t.Fatalf("expected live map cleared, got %d", s.ActiveCount())
	}
}

func TestParseSessionDuration(t *testing.T) {
	secs, ok := parseSessionDuration("1:02:03.250")
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	want := 3723.25
	if secs != want {
		t.Fatalf("expected %v seconds, got %v", want, secs)
	}
	if _, ok := parseSessionDuration("garbage"); ok {
		t.Fatal("expected parse failure for malformed duration")
	}
}
