package source

import (
	"bufio"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/willibrandon/pgtail/internal/filter"
	"github.com/willibrandon/pgtail/internal/parse"
	"github.com/willibrandon/pgtail/internal/record"
)

// StdinReader reads piped log input from stdin on a background goroutine,
// for usage like `cat log.gz | gunzip | pgtail --stdin`. Reaching EOF
// does not end the tail session; it just stops producing new records.
type StdinReader struct {
	reader      io.Reader
	filterState *filter.State
	onAny       OnRecord
	onEOF       func()

	mu       sync.Mutex
	buffer   []record.LogRecord
	capacity int

	format   record.Format
	detected bool

	linesRead  int64
	eofReached int32
	running    int32

	queue   chan record.LogRecord
	stop    chan struct{}
	stopped chan struct{}
}

// NewStdinReader constructs a reader over os.Stdin. Call SetReader before
// Start (e.g. in tests) to read from something else instead.
func NewStdinReader(filterState *filter.State, onAny OnRecord) *StdinReader {
	return &StdinReader{
		reader:      os.Stdin,
		filterState: filterState,
		onAny:       onAny,
		capacity:    DefaultBufferCap,
		queue:       make(chan record.LogRecord, 1024),
	}
}

// SetReader overrides the input source, for tests.
func (r *StdinReader) SetReader(rd io.Reader) { r.reader = rd }

// SetOnEOF registers a callback invoked once when stdin is exhausted.
func (r *StdinReader) SetOnEOF(fn func()) { r.onEOF = fn }

// Start spawns the background read loop. Calling Start twice is a no-op.
func (r *StdinReader) Start() {
	if !atomic.CompareAndSwapInt32(&r.running, 0, 1) {
		return
	}
	r.stop = make(chan struct{})
	r.stopped = make(chan struct{})
	go r.readLoop()
}

// Stop signals the read loop to exit and waits briefly for it to finish.
func (r *StdinReader) Stop() {
	if !atomic.CompareAndSwapInt32(&r.running, 1, 0) {
		return
	}
	close(r.stop)
	select {
	case <-r.stopped:
	case <-time.After(500 * time.Millisecond):
	}
}

func (r *StdinReader) readLoop() {
	defer close(r.stopped)
	defer func() {
		atomic.StoreInt32(&r.eofReached, 1)
		if r.onEOF != nil {
			r.onEOF()
		}
	}()

	scanner := bufio.NewScanner(r.reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case <-r.stop:
			return
		default:
		}

		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		atomic.AddInt64(&r.linesRead, 1)

		if !r.detected {
			r.format = parse.DetectFormat(line)
			r.detected = true
		}

		rec := parse.ParseLine(r.format, line, "stdin")

		if r.onAny != nil {
			r.onAny(rec)
		}

		if r.shouldShow(rec) {
			r.mu.Lock()
			r.buffer = append(r.buffer, rec)
			if len(r.buffer) > r.capacity {
				r.buffer = r.buffer[len(r.buffer)-r.capacity:]
			}
			r.mu.Unlock()

			select {
			case r.queue <- rec:
			default:
			}
		}
	}
}

func (r *StdinReader) shouldShow(rec record.LogRecord) bool {
	if r.filterState == nil {
		return true
	}
	return r.filterState.ShouldShow(rec)
}

// GetNext returns the next filter-passing record, waiting up to timeout.
func (r *StdinReader) GetNext(timeout time.Duration) (record.LogRecord, bool) {
	select {
	case rec := <-r.queue:
		return rec, true
	case <-time.After(timeout):
		return record.LogRecord{}, false
	}
}

// GetBuffer returns a copy of the bounded in-memory history.
func (r *StdinReader) GetBuffer() []record.LogRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]record.LogRecord(nil), r.buffer...)
}

// ClearBuffer empties the retained history.
func (r *StdinReader) ClearBuffer() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buffer = nil
}

// IsRunning reports whether the read loop is active.
func (r *StdinReader) IsRunning() bool { return atomic.LoadInt32(&r.running) == 1 }

// EOFReached reports whether stdin has been fully drained.
func (r *StdinReader) EOFReached() bool { return atomic.LoadInt32(&r.eofReached) == 1 }

// LinesRead returns the count of non-empty lines read so far.
func (r *StdinReader) LinesRead() int64 { return atomic.LoadInt64(&r.linesRead) }

// Format returns the detected format, or FormatText if none yet detected.
func (r *StdinReader) Format() record.Format {
	if !r.detected {
		return record.FormatText
	}
	return r.format
}

// UpdateFilter swaps the active filter state for subsequent admissions.
func (r *StdinReader) UpdateFilter(f *filter.State) {
	r.filterState = f
}

// IsStdinPipe reports whether stdin is receiving piped input rather than
// an interactive terminal.
func IsStdinPipe() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) == 0
}
