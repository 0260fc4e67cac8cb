package runtime

import (
	"testing"
	"time"

	"github.com/willibrandon/pgtail/internal/filter"
	"github.com/willibrandon/pgtail/internal/highlight"
	"github.com/willibrandon/pgtail/internal/history"
	"github.com/willibrandon/pgtail/internal/notify"
	"github.com/willibrandon/pgtail/internal/record"
)

type nopNotifier struct{}

func (nopNotifier) Send(title, body, subtitle string) error { return nil }

func newTestRuntime() *Runtime {
	fs := &filter.State{}
	buf := history.NewBuffer(100, 80)
	mgr := notify.NewManager(notify.Config{}, nopNotifier{})
	chain := highlight.NewChain(highlight.DurationThresholds{WarnMS: 100, SlowMS: 500, CriticalMS: 2000}, nil)
	return New(fs, buf, mgr, chain)
}

func TestOnRecordAdmitsIntoHistoryAndAggregators(t *testing.T) {
	rt := newTestRuntime()
	rt.OnRecord(record.LogRecord{Level: record.Error, Raw: "boom", Message: "boom", SQLState: "23505"})
	n := rt.drainBatch()
	if n != 1 {
		t.Fatalf("expected to drain 1 record, got %d", n)
	}
	if rt.History.Len() != 1 {
		t.Fatalf("expected 1 record in history, got %d", rt.History.Len())
	}
	if rt.Errors.CountBySQLState("23505") != 1 {
		t.Fatalf("expected SQLSTATE admitted into ErrorStats")
	}
}

func TestClearRestoresAnchorNotEmptyState(t *testing.T) {
	rt := newTestRuntime()
	rt.Filter.Levels = map[record.Level]bool{record.Error: true}
	rt.anchor = rt.Filter.Clone() // simulate --level error supplied at session start

	rt.Filter.Regex.ApplyToken("/extra/")
	rt.Clear()

	if len(rt.Filter.Regex.Includes) != 0 {
		t.Fatalf("expected Clear to drop session-added regex filters")
	}
	if !rt.Filter.Levels[record.Error] {
		t.Fatalf("expected Clear to restore the anchor's level filter")
	}
}

func TestClearForceEmptiesAnchorToo(t *testing.T) {
	rt := newTestRuntime()
	rt.Filter.Levels = map[record.Level]bool{record.Error: true}
	rt.anchor = rt.Filter.Clone()

	rt.ClearForce()

	if rt.Filter.Levels != nil {
		t.Fatalf("expected ClearForce to drop even the anchor's level filter")
	}

	// A subsequent plain Clear should not resurrect the old anchor.
	rt.Filter.Levels = map[record.Level]bool{record.Warning: true}
	rt.applyFilterMutation()
	rt.Clear()
	if rt.Filter.Levels != nil {
		t.Fatalf("expected anchor to remain empty after ClearForce")
	}
}

func TestScrollTransitionsFollowToPaused(t *testing.T) {
	rt := newTestRuntime()
	for i := 0; i < 5; i++ {
		rt.OnRecord(record.LogRecord{Level: record.Log, Raw: "line", Message: "line"})
	}
	rt.drainBatch()

	if rt.History.State() != history.Follow {
		t.Fatal("expected initial state FOLLOW")
	}
	rt.Scroll(3)
	if rt.History.State() != history.Paused {
		t.Fatal("expected PAUSED after scrolling up")
	}
	rt.Scroll(-10)
	if rt.History.State() != history.Follow {
		t.Fatal("expected FOLLOW after scrolling past zero")
	}
}

func TestStartStopIdempotent(t *testing.T) {
	rt := newTestRuntime()
	rt.Start()
	time.Sleep(5 * time.Millisecond)
	rt.Stop()
	rt.Stop() // second Stop must be a no-op, not a double-close panic
}
