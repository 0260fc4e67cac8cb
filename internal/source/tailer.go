// Package source implements the file tailer, multi-file fan-in, and stdin
// reader that feed parsed LogRecords into the tail runtime.
package source

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/willibrandon/pgtail/internal/filter"
	"github.com/willibrandon/pgtail/internal/parse"
	"github.com/willibrandon/pgtail/internal/record"
)

// DefaultBufferCap bounds the in-memory history each tailer retains.
const DefaultBufferCap = 10000

// DefaultPollInterval is how often a tailer checks its file for new data.
const DefaultPollInterval = 100 * time.Millisecond

// OnRecord is invoked for every parsed record, before filtering, so stats
// and notifications can observe the full stream.
type OnRecord func(record.LogRecord)

// FileTailer emits LogRecords from one file, surviving rotation.
type FileTailer struct {
	path         string
	pollInterval time.Duration
	filterState  *filter.State
	onAny        OnRecord

	position  int64
	inode     uint64
	hasInode  bool
	lastMtime time.Time
	lastSize  int64
	format    record.Format
	detected  bool

	unavailableSince time.Time
	isUnavailable    bool

	mu       sync.Mutex
	buffer   []record.LogRecord
	queue    chan record.LogRecord
	stop     chan struct{}
	stopped  chan struct{}
	running  bool
}

// NewFileTailer constructs a tailer in stopped state.
func NewFileTailer(path string, filterState *filter.State, onAny OnRecord) *FileTailer {
	return &FileTailer{
		path:         path,
		pollInterval: DefaultPollInterval,
		filterState:  filterState,
		onAny:        onAny,
		queue:        make(chan record.LogRecord, 1024),
	}
}

// Start seeks to end-of-file (or start-of-file if a time filter is active)
// and spawns the polling goroutine.
func (t *FileTailer) Start() {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return
	}
	t.running = true
	t.stop = make(chan struct{})
	t.stopped = make(chan struct{})
	t.mu.Unlock()

	if t.filterState != nil && t.filterState.TimeWindow.IsActive() {
		t.position = 0
	} else if info, err := os.Stat(t.path); err == nil {
		t.position = info.Size()
	}
	if ino, ok := fileInode(t.path); ok {
		t.inode = ino
		t.hasInode = true
	}
	if info, err := os.Stat(t.path); err == nil {
		t.lastMtime = info.ModTime()
		t.lastSize = info.Size()
	}

	go t.pollLoop()
}

// Stop signals the poll loop to exit and waits for it to finish.
func (t *FileTailer) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	stop := t.stop
	stopped := t.stopped
	t.mu.Unlock()

	close(stop)
	<-stopped
}

func (t *FileTailer) pollLoop() {
	defer close(t.stopped)
	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			t.readNewLines()
		}
	}
}

// checkRotation detects inode change, truncation, or same-size-but-changed
// mtime (a common rename+recreate signature), resetting position/format on
// a positive result.
func (t *FileTailer) checkRotation() bool {
	info, err := os.Stat(t.path)
	if err != nil {
		return false
	}
	ino, hasIno := fileInode(t.path)

	size := info.Size()
	mtime := info.ModTime()

	inodeChanged := hasIno && t.hasInode && ino != t.inode
	truncated := size < t.position
	mtimeRotation := !mtime.Equal(t.lastMtime) && size == t.lastSize && t.position >= size && size > 0

	rotated := inodeChanged || truncated || mtimeRotation

	t.lastMtime = mtime
	t.lastSize = size

	if rotated {
		t.inode = ino
		t.hasInode = hasIno
		t.position = 0
		t.detected = false
	}
	return rotated
}

func (t *FileTailer) readNewLines() {
	t.checkRotation()

	f, err := os.Open(t.path)
	if err != nil {
		if !t.isUnavailable {
			t.isUnavailable = true
			t.unavailableSince = time.Now()
		}
		return
	}
	defer f.Close()

	t.isUnavailable = false

	if _, err := f.Seek(t.position, io.SeekStart); err != nil {
		return
	}

	reader := bufio.NewReader(f)
	sourceName := filepath.Base(t.path)

	for {
		line, err := reader.ReadString('\n')
		trimmed := trimTrailingNewline(line)

		if trimmed != "" {
			if !t.detected {
				t.format = parse.DetectFormat(trimmed)
				t.detected = true
			}
			rec := parse.ParseLine(t.format, trimmed, sourceName)

			if t.onAny != nil {
				t.onAny(rec)
			}

			t.mu.Lock()
			t.buffer = append(t.buffer, rec)
			if len(t.buffer) > DefaultBufferCap {
				t.buffer = t.buffer[len(t.buffer)-DefaultBufferCap:]
			}
			t.mu.Unlock()

			if t.shouldShow(rec) {
				select {
				case t.queue <- rec:
				default:
				}
			}
		}

		if err != nil {
			break
		}
	}

	if pos, err := f.Seek(0, io.SeekCurrent); err == nil {
		t.position = pos - int64(reader.Buffered())
	}
}

func (t *FileTailer) shouldShow(rec record.LogRecord) bool {
	if t.filterState == nil {
		return true
	}
	return t.filterState.ShouldShow(rec)
}

func trimTrailingNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// GetNext returns the next filter-passing record, waiting up to timeout.
func (t *FileTailer) GetNext(timeout time.Duration) (record.LogRecord, bool) {
	select {
	case rec := <-t.queue:
		return rec, true
	case <-time.After(timeout):
		return record.LogRecord{}, false
	}
}

// GetBuffer returns a copy of the bounded in-memory history.
func (t *FileTailer) GetBuffer() []record.LogRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]record.LogRecord(nil), t.buffer...)
}

// IsUnavailable reports whether the file is currently unreachable, and
// since when.
func (t *FileTailer) IsUnavailable() (bool, time.Time) {
	return t.isUnavailable, t.unavailableSince
}

// UpdateFilter swaps the active filter state for subsequent admissions.
func (t *FileTailer) UpdateFilter(f *filter.State) {
	t.filterState = f
}
