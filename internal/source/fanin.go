package source

import (
	"path/filepath"
	"sort"
	"time"

	"github.com/willibrandon/pgtail/internal/filter"
	"github.com/willibrandon/pgtail/internal/record"
)

// GlobScanInterval is how often the fan-in rescans a glob pattern for
// newly matching files.
const GlobScanInterval = 5 * time.Second

// fanInQueueCap bounds each per-file staging queue FanIn drains on every
// merge tick.
const fanInQueueCap = 1024

// FanIn tails N files (possibly expanded from a glob), merging their
// output in stable, per-tick timestamp order. Each sub-tailer's onAny is
// intercepted into a FanIn-owned per-file queue rather than calling the
// caller's callback directly, so the caller only ever observes records
// after they have passed through the cross-file merge sort.
type FanIn struct {
	globPattern string
	tailers     map[string]*FileTailer
	queues      map[string]chan record.LogRecord
	filterState *filter.State
	onAny       OnRecord

	lastScan time.Time
	stop     chan struct{}
	stopped  chan struct{}
}

// NewFanIn constructs a fan-in over the given initial paths, optionally
// also rescanning globPattern (empty string disables dynamic discovery).
func NewFanIn(paths []string, globPattern string, filterState *filter.State, onAny OnRecord) *FanIn {
	fi := &FanIn{
		globPattern: globPattern,
		tailers:     make(map[string]*FileTailer),
		queues:      make(map[string]chan record.LogRecord),
		filterState: filterState,
		onAny:       onAny,
	}
	for _, p := range paths {
		fi.addTailer(p)
	}
	return fi
}

func (fi *FanIn) addTailer(path string) {
	if _, exists := fi.tailers[path]; exists {
		return
	}
	ch := make(chan record.LogRecord, fanInQueueCap)
	stage := func(rec record.LogRecord) {
		select {
		case ch <- rec:
		default:
		}
	}
	t := NewFileTailer(path, fi.filterState, stage)
	fi.tailers[path] = t
	fi.queues[path] = ch
}

// Start launches every per-file tailer plus the merge/glob-rescan loop.
func (fi *FanIn) Start() {
	for _, t := range fi.tailers {
		t.Start()
	}
	fi.stop = make(chan struct{})
	fi.stopped = make(chan struct{})
	go fi.mergeLoop()
}

// Stop stops every tailer and the merge loop.
func (fi *FanIn) Stop() {
	close(fi.stop)
	<-fi.stopped
	for _, t := range fi.tailers {
		t.Stop()
	}
}

func (fi *FanIn) mergeLoop() {
	defer close(fi.stopped)
	ticker := time.NewTicker(DefaultPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-fi.stop:
			return
		case <-ticker.C:
			fi.rescanGlob()
			fi.drainTick()
		}
	}
}

func (fi *FanIn) rescanGlob() {
	if fi.globPattern == "" {
		return
	}
	if time.Since(fi.lastScan) < GlobScanInterval {
		return
	}
	fi.lastScan = time.Now()

	matches, err := filepath.Glob(fi.globPattern)
	if err != nil {
		return
	}
	for _, m := range matches {
		fi.addTailer(m)
		if t, ok := fi.tailers[m]; ok {
			// Newly discovered files are not yet started elsewhere; Start
			// is idempotent if already running.
			t.Start()
		}
	}
}

// drainTick drains whatever each per-file staging queue currently holds
// (non-blocking), stable-sorts the combined batch by (timestamp-or-zero,
// source_name), and forwards each record to onAny in that order. Records
// with absent timestamps sort first.
func (fi *FanIn) drainTick() {
	var batch []record.LogRecord
	for _, ch := range fi.queues {
		for {
			select {
			case rec := <-ch:
				batch = append(batch, rec)
			default:
				goto nextQueue
			}
		}
	nextQueue:
	}

	sort.SliceStable(batch, func(i, j int) bool {
		a, b := batch[i], batch[j]
		if a.HasTime != b.HasTime {
			return !a.HasTime // absent timestamps sort first
		}
		if a.HasTime && !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.SourceName < b.SourceName
	})

	if fi.onAny == nil {
		return
	}
	for _, rec := range batch {
		fi.onAny(rec)
	}
}

// FileCount returns the number of files currently being tailed.
func (fi *FanIn) FileCount() int { return len(fi.tailers) }

// UpdateFilter swaps the active filter state on every tailer.
func (fi *FanIn) UpdateFilter(f *filter.State) {
	fi.filterState = f
	for _, t := range fi.tailers {
		t.UpdateFilter(f)
	}
}
