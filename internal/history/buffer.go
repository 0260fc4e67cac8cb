// Package history implements the bounded FIFO of formatted records and the
// FOLLOW/PAUSED viewport state machine that sits between the tail runtime
// and the renderer.
package history

import (
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/mitchellh/go-wordwrap"

	"github.com/willibrandon/pgtail/internal/filter"
	"github.com/willibrandon/pgtail/internal/highlight"
	"github.com/willibrandon/pgtail/internal/record"
)

// State is the viewport mode: FOLLOW auto-pins to the newest line, PAUSED
// holds a fixed scroll offset while new lines accumulate off-screen.
type State int

const (
	Follow State = iota
	Paused
)

// FormattedRecord is one entry in the buffer: the parsed record, its
// rendered styled spans, and whether it currently passes the active
// filter.
type FormattedRecord struct {
	Record       record.LogRecord
	Spans        []highlight.Span
	PassesFilter bool
}

// Buffer is a bounded, single-writer/single-reader FIFO of FormattedRecord
// plus the FOLLOW/PAUSED viewport state described in the project's history
// buffer design.
type Buffer struct {
	entries       []FormattedRecord
	capacity      int
	state         State
	scrollOffset  int // visual lines from bottom, 0 = newest
	newSincePause int
	width         int // render width used for visual-line-count math
}

// DefaultCapacity is the default bound on buffered records.
const DefaultCapacity = 10000

// NewBuffer constructs an empty buffer in FOLLOW mode.
func NewBuffer(capacity, width int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if width <= 0 {
		width = 80
	}
	return &Buffer{capacity: capacity, width: width, state: Follow}
}

// visualLines returns how many terminal rows rendering raw at the buffer's
// configured width would occupy. wordwrap breaks raw at word boundaries
// near the target width, but its boundary math counts runes, not display
// columns, so a segment with wide (CJK) or zero-width runes can still
// under- or over-shoot the real terminal width; runewidth re-measures each
// wrapped segment's actual column width to correct for that.
func (b *Buffer) visualLines(raw string) int {
	if raw == "" {
		return 1
	}
	wrapped := wordwrap.WrapString(raw, uint(b.width))
	lines := strings.Split(wrapped, "\n")
	total := 0
	for _, line := range lines {
		w := runewidth.StringWidth(line)
		switch {
		case w == 0:
			total++
		default:
			total += (w + b.width - 1) / b.width
		}
	}
	return total
}

// Append admits a new record, evaluating the filter predicate, applying
// eviction at capacity, and maintaining scroll stability per the append
// algorithm: evict oldest -> adjust scroll_offset if the evicted record
// passed filter and we're paused -> push new record -> if paused and the
// new record passes, grow scroll_offset to keep the viewport pinned.
func (b *Buffer) Append(rec record.LogRecord, spans []highlight.Span, passes bool) {
	fr := FormattedRecord{Record: rec, Spans: spans, PassesFilter: passes}

	if len(b.entries) >= b.capacity {
		evicted := b.entries[0]
		b.entries = b.entries[1:]
		if evicted.PassesFilter && b.state == Paused && b.scrollOffset > 0 {
			b.scrollOffset -= b.visualLines(evicted.Record.Raw)
			if b.scrollOffset < 0 {
				b.scrollOffset = 0
			}
		}
	}

	b.entries = append(b.entries, fr)

	if b.state == Paused && passes {
		b.newSincePause++
		b.scrollOffset += b.visualLines(rec.Raw)
	}
}

// Refilter re-evaluates PassesFilter on every buffered record against f,
// then rescales the scroll offset by the ratio of new to old passing
// counts, clamped to [0, n-1].
func (b *Buffer) Refilter(f *filter.State) {
	oldCount := 0
	for _, e := range b.entries {
		if e.PassesFilter {
			oldCount++
		}
	}

	newCount := 0
	for i := range b.entries {
		passes := f.ShouldShow(b.entries[i].Record)
		b.entries[i].PassesFilter = passes
		if passes {
			newCount++
		}
	}

	if b.scrollOffset > 0 && oldCount > 0 {
		ratio := float64(b.scrollOffset) / float64(oldCount)
		rescaled := int(ratio * float64(newCount))
		if rescaled > newCount-1 {
			rescaled = newCount - 1
		}
		if rescaled < 0 {
			rescaled = 0
		}
		b.scrollOffset = rescaled
	} else if newCount == 0 {
		b.scrollOffset = 0
	}
}

// Clear empties the buffer and resets viewport counters, keeping the
// current FOLLOW/PAUSED state.
func (b *Buffer) Clear() {
	b.entries = nil
	b.scrollOffset = 0
	b.newSincePause = 0
}

// Len returns the number of buffered records (filtered and unfiltered).
func (b *Buffer) Len() int { return len(b.entries) }

// State returns the current viewport state.
func (b *Buffer) State() State { return b.state }

// ScrollOffset returns the current visual-lines-from-bottom offset.
func (b *Buffer) ScrollOffset() int { return b.scrollOffset }

// NewSincePause returns the count of filter-passing records admitted while
// paused.
func (b *Buffer) NewSincePause() int { return b.newSincePause }

// SetWidth updates the render width used for visual-line-count math. This
// does not retroactively recompute existing scroll offsets.
func (b *Buffer) SetWidth(width int) {
	if width > 0 {
		b.width = width
	}
}

// PassingVisualLines returns the total visual-line count across every
// filter-passing record, the maximum scroll offset a "jump home" can use.
func (b *Buffer) PassingVisualLines() int {
	total := 0
	for _, e := range b.entries {
		if e.PassesFilter {
			total += b.visualLines(e.Record.Raw)
		}
	}
	return total
}
