package history

import (
	"fmt"
	"testing"

	"github.com/willibrandon/pgtail/internal/record"
)

func makeRecord(i int) record.LogRecord {
	return record.LogRecord{
		Level: record.Info,
		Raw:   fmt.Sprintf("line %d", i),
	}
}

func TestFollowModeKeepsOffsetZero(t *testing.T) {
	b := NewBuffer(100, 80)
	for i := 0; i < 50; i++ {
		b.Append(makeRecord(i), nil, true)
		if b.ScrollOffset() != 0 || b.NewSincePause() != 0 {
			t.Fatalf("follow mode invariant violated at append %d: offset=%d newSince=%d", i, b.ScrollOffset(), b.NewSincePause())
		}
	}
}

func TestPausedScrollStabilityAcrossEviction(t *testing.T) {
	b := NewBuffer(100, 80)
	for i := 0; i < 100; i++ {
		b.Append(makeRecord(i), nil, true)
	}

	b.ScrollUp(10)
	before := b.VisibleLines(1)
	if len(before) != 1 {
		t.Fatalf("expected 1 visible line, got %d", len(before))
	}
	topBefore := before[0].Record.Raw

	for i := 100; i < 150; i++ {
		b.Append(makeRecord(i), nil, true)
	}

	after := b.VisibleLines(1)
	if len(after) != 1 {
		t.Fatalf("expected 1 visible line, got %d", len(after))
	}
	if after[0].Record.Raw != topBefore {
		t.Fatalf("viewport shifted: before=%q after=%q", topBefore, after[0].Record.Raw)
	}
}

func TestClearEmptiesBuffer(t *testing.T) {
	b := NewBuffer(10, 80)
	for i := 0; i < 5; i++ {
		b.Append(makeRecord(i), nil, true)
	}
	b.Clear()
	if b.Len() != 0 {
		t.Fatalf("expected empty buffer after clear, got %d", b.Len())
	}
}

func TestScrollDownReturnsToFollow(t *testing.T) {
	b := NewBuffer(10, 80)
	for i := 0; i < 5; i++ {
		b.Append(makeRecord(i), nil, true)
	}
	b.ScrollUp(3)
	if b.State() != Paused {
		t.Fatalf("expected paused state")
	}
	b.ScrollDown(10)
	if b.State() != Follow {
		t.Fatalf("expected follow state after scrolling past zero")
	}
	if b.ScrollOffset() != 0 {
		t.Fatalf("expected zero offset in follow mode")
	}
}
