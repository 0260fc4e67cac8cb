package aggregate

import (
	"testing"
	"time"

	"github.com/willibrandon/pgtail/internal/record"
)

func TestErrorStatsAdmitOnlyErrorClassLevels(t *testing.T) {
	s := NewErrorStats()
	s.Admit(record.LogRecord{Level: record.Panic})
	s.Admit(record.LogRecord{Level: record.Fatal})
	s.Admit(record.LogRecord{Level: record.Error})
	s.Admit(record.LogRecord{Level: record.Warning})
	s.Admit(record.LogRecord{Level: record.Log})
	s.Admit(record.LogRecord{Level: record.Info})

	if s.EventCount() != 4 {
		t.Fatalf("expected 4 admitted events, got %d", s.EventCount())
	}
	if s.CountByLevel(record.Log) != 0 {
		t.Fatalf("LOG-level record should not be admitted")
	}
}

func TestErrorStatsCountsBySQLState(t *testing.T) {
	s := NewErrorStats()
	s.Admit(record.LogRecord{Level: record.Error, SQLState: "23505"})
	s.Admit(record.LogRecord{Level: record.Error, SQLState: "23505"})
	s.Admit(record.LogRecord{Level: record.Error, SQLState: "42601"})

	if s.CountBySQLState("23505") != 2 {
		t.Fatalf("expected 2 for 23505, got %d", s.CountBySQLState("23505"))
	}
	if name, ok := SQLStateName("23505"); !ok || name != "unique_violation" {
		t.Fatalf("expected unique_violation, got %q ok=%v", name, ok)
	}
	if cat, ok := SQLStateCategory("42601"); !ok || cat != "Syntax Error or Access Rule Violation" {
		t.Fatalf("unexpected category %q ok=%v", cat, ok)
	}
}

func TestErrorStatsClearResets(t *testing.T) {
	s := NewErrorStats()
	s.Admit(record.LogRecord{Level: record.Error, SQLState: "23505"})
	s.Clear()
	if s.EventCount() != 0 || s.CountByLevel(record.Error) != 0 || s.CountBySQLState("23505") != 0 {
		t.Fatal("expected Clear to reset all counters")
	}
}

func TestErrorStatsTrendBucketsOldestFirst(t *testing.T) {
	s := NewErrorStats()
	now := time.Date(2024, 1, 1, 12, 5, 0, 0, time.UTC)
	s.Admit(record.LogRecord{Level: record.Error, HasTime: true, Timestamp: now.Add(-4 * time.Minute)})
	s.Admit(record.LogRecord{Level: record.Error, HasTime: true, Timestamp: now})
	s.Admit(record.LogRecord{Level: record.Error, HasTime: true, Timestamp: now})

	buckets := s.TrendBuckets(5, now)
	if len(buckets) != 5 {
		t.Fatalf("expected 5 buckets, got %d", len(buckets))
	}
	if buckets[0].Count != 1 {
		t.Fatalf("expected oldest bucket to have 1 event, got %d", buckets[0].Count)
	}
	if buckets[len(buckets)-1].Count != 2 {
		t.Fatalf("expected newest bucket to have 2 events, got %d", buckets[len(buckets)-1].Count)
	}
}

func TestErrorStatsBoundsEventDeque(t *testing.T) {
	s := NewErrorStats()
	for i := 0; i < maxErrorEvents+50; i++ {
		s.Admit(record.LogRecord{Level: record.Error})
	}
	if s.EventCount() != maxErrorEvents {
		t.Fatalf("expected event count bounded at %d, got %d", maxErrorEvents, s.EventCount())
	}
}
