package source

import (
	"testing"
	"time"

	"github.com/willibrandon/pgtail/internal/record"
)

func TestFanInDrainTickStableSortByTimeThenSource(t *testing.T) {
	var got []record.LogRecord
	fi := &FanIn{
		tailers: make(map[string]*FileTailer),
		queues:  make(map[string]chan record.LogRecord),
		onAny:   func(rec record.LogRecord) { got = append(got, rec) },
	}
	fi.queues["a.log"] = make(chan record.LogRecord, 16)
	fi.queues["b.log"] = make(chan record.LogRecord, 16)
	fi.tailers["a.log"] = NewFileTailer("a.log", nil, nil)
	fi.tailers["b.log"] = NewFileTailer("b.log", nil, nil)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fi.queues["b.log"] <- record.LogRecord{SourceName: "b.log", HasTime: true, Timestamp: base, Message: "second-source-same-time"}
	fi.queues["a.log"] <- record.LogRecord{SourceName: "a.log", HasTime: true, Timestamp: base, Message: "first-source-same-time"}
	fi.queues["a.log"] <- record.LogRecord{SourceName: "a.log", HasTime: false, Message: "no-timestamp"}

	fi.drainTick()

	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	if got[0].HasTime {
		t.Fatalf("expected record with absent timestamp to sort first, got %+v", got[0])
	}
	if got[1].SourceName != "a.log" || got[2].SourceName != "b.log" {
		t.Fatalf("expected a.log before b.log at equal timestamps, got %s then %s", got[1].SourceName, got[2].SourceName)
	}
}

func TestFanInFileCount(t *testing.T) {
	fi := NewFanIn([]string{"x.log", "y.log"}, "", nil, nil)
	if fi.FileCount() != 2 {
		t.Fatalf("expected 2 tailers, got %d", fi.FileCount())
	}
	fi.addTailer("x.log")
	if fi.FileCount() != 2 {
		t.Fatalf("expected addTailer on existing path to be a no-op, got %d", fi.FileCount())
	}
}

func TestFanInAddTailerBypassesOnAny(t *testing.T) {
	var direct int
	fi := &FanIn{
		tailers: make(map[string]*FileTailer),
		queues:  make(map[string]chan record.LogRecord),
		onAny:   func(record.LogRecord) { direct++ },
	}
	fi.addTailer("z.log")

	rec := record.LogRecord{SourceName: "z.log", Message: "hello"}
	fi.tailers["z.log"].onAny(rec)

	if direct != 0 {
		t.Fatalf("expected the per-tailer callback to stage into FanIn's queue, not call onAny directly, got %d direct calls", direct)
	}
	select {
	case got := <-fi.queues["z.log"]:
		if got.Message != "hello" {
			t.Fatalf("expected staged record %+v", got)
		}
	default:
		t.Fatal("expected the record to be staged in the per-file queue")
	}
}
