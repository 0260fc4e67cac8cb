// Package runtime implements the tail driver: it owns the filter state,
// history buffer, aggregators, and notification engine, and exposes the
// command interface a renderer calls to mutate them.
package runtime

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/willibrandon/pgtail/internal/aggregate"
	"github.com/willibrandon/pgtail/internal/filter"
	"github.com/willibrandon/pgtail/internal/highlight"
	"github.com/willibrandon/pgtail/internal/history"
	"github.com/willibrandon/pgtail/internal/notify"
	"github.com/willibrandon/pgtail/internal/record"
)

// batchSize is the max number of records the driver drains per tick
// before yielding control back, per the bounded-batching contract.
const batchSize = 50

// idleSleep is how long the driver sleeps when its inbound queue was
// empty on the last drain.
const idleSleep = 10 * time.Millisecond

// Stoppable is anything the runtime can start/stop: FileTailer, FanIn,
// and StdinReader in internal/source all satisfy it.
type Stoppable interface {
	Start()
	Stop()
}

// Runtime wires a source's record stream into the filter pipeline,
// history buffer, aggregators, and notification manager, and owns the
// FOLLOW/PAUSED viewport state via its History buffer.
type Runtime struct {
	mu sync.Mutex

	// SessionID uniquely identifies this tail invocation. It has no
	// effect on pipeline behavior; it exists so log lines, exported
	// files, and notification dispatch from the same run can be
	// correlated after the fact.
	SessionID string

	source Stoppable

	Filter    *filter.State
	anchor    filter.State
	History   *history.Buffer
	Errors    *aggregate.ErrorStats
	Conns     *aggregate.ConnectionStats
	Durations *aggregate.DurationStats
	Notify    *notify.Manager
	Highlight *highlight.Chain

	inbound chan record.LogRecord
	stop    chan struct{}
	stopped chan struct{}
	running bool
}

// New constructs a Runtime over the given filter state (already reflecting
// any CLI-supplied initial filters, e.g. --since), capturing it as the
// session anchor restored by the `clear` command.
func New(filterState *filter.State, historyBuffer *history.Buffer, notifyManager *notify.Manager, highlightChain *highlight.Chain) *Runtime {
	return &Runtime{
		SessionID: uuid.New().String(),
		Filter:    filterState,
		anchor:    filterState.Clone(),
		History:   historyBuffer,
		Errors:    aggregate.NewErrorStats(),
		Conns:     aggregate.NewConnectionStats(),
		Durations: aggregate.NewDurationStats(),
		Notify:    notifyManager,
		Highlight: highlightChain,
		inbound:   make(chan record.LogRecord, 4096),
	}
}

// SetSource attaches the source reader whose records feed this runtime.
// The source must have been constructed with OnRecord as its callback.
func (rt *Runtime) SetSource(src Stoppable) {
	rt.mu.Lock()
	rt.source = src
	rt.mu.Unlock()
}

// OnRecord is the callback a source reader invokes for every parsed
// record, before filtering, so stats and notifications observe the full
// stream. It never blocks the source: the inbound channel is large and a
// full channel drops the record rather than stalling polling.
func (rt *Runtime) OnRecord(rec record.LogRecord) {
	select {
	case rt.inbound <- rec:
	default:
	}
}

// Start launches the source (if attached) and the consume loop.
func (rt *Runtime) Start() {
	rt.mu.Lock()
	if rt.running {
		rt.mu.Unlock()
		return
	}
	rt.running = true
	rt.stop = make(chan struct{})
	rt.stopped = make(chan struct{})
	src := rt.source
	rt.mu.Unlock()

	if src != nil {
		src.Start()
	}
	go rt.consumeLoop()
}

// Stop signals the source and the consume loop to exit.
func (rt *Runtime) Stop() {
	rt.mu.Lock()
	if !rt.running {
		rt.mu.Unlock()
		return
	}
	rt.running = false
	src := rt.source
	stop := rt.stop
	stopped := rt.stopped
	rt.mu.Unlock()

	close(stop)
	<-stopped
	if src != nil {
		src.Stop()
	}
}

func (rt *Runtime) consumeLoop() {
	defer close(rt.stopped)
	for {
		select {
		case <-rt.stop:
			return
		default:
		}

		n := rt.drainBatch()
		if n == 0 {
			time.Sleep(idleSleep)
		}
	}
}

// drainBatch pulls up to batchSize records off the inbound channel and
// admits each into the buffer, aggregators, and notifier.
func (rt *Runtime) drainBatch() int {
	now := time.Now()
	n := 0
	for n < batchSize {
		select {
		case rec := <-rt.inbound:
			rt.admit(rec, now)
			n++
		default:
			return n
		}
	}
	return n
}

func (rt *Runtime) admit(rec record.LogRecord, now time.Time) {
	rt.mu.Lock()
	passes := rt.Filter.ShouldShow(rec)
	spans := rt.Highlight.Highlight(rec.Raw)
	rt.mu.Unlock()

	rt.History.Append(rec, spans, passes)
	rt.Errors.Admit(rec)
	rt.Conns.Admit(rec)
	if ms, ok := aggregate.ExtractDurationMS(rec.Message); ok {
		rt.Durations.Add(ms)
	}
	rt.Notify.Check(rec, now)
}
