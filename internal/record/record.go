package record

import "time"

// Format identifies which parser produced a LogRecord.
type Format int

const (
	FormatText Format = iota
	FormatCSV
	FormatJSON
)

func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatJSON:
		return "json"
	default:
		return "text"
	}
}

// LogRecord is the canonical parsed form of a single PostgreSQL server log
// entry. Every downstream stage (filter, highlighter, aggregator, history
// buffer) operates on this type regardless of which parser produced it.
//
// Fields after SourceName are populated for CSV/JSON sources; TEXT-sourced
// records leave them at their zero value, except Context, which the
// bracketed TEXT line shape also fills.
type LogRecord struct {
	Timestamp  time.Time // zero value means "absent"
	HasTime    bool
	Level      Level
	Message    string
	Raw        string
	PID        int
	HasPID     bool
	Format     Format
	SourceName string

	User              string
	Database          string
	Application       string
	RemoteHost        string
	RemotePort        int
	HasRemotePort     bool
	SessionID         string
	SessionLineNum    int
	HasSessionLineNum bool
	SessionStart      time.Time
	HasSessionStart   bool
	VirtualTxID       string
	TxID              string
	SQLState          string
	Detail            string
	Hint              string
	InternalQuery     string
	InternalQueryPos  int
	HasInternalQPos   bool
	Context           string
	Query             string
	QueryPos          int
	HasQueryPos       bool
	Location          string
	BackendType       string
	LeaderPID         int
	HasLeaderPID      bool
	QueryID           string
}

// Fallback builds the LOG-level record used whenever a line cannot be
// parsed under the detected format's grammar.
func Fallback(raw, sourceName string) LogRecord {
	return LogRecord{
		Level:      Log,
		Message:    raw,
		Raw:        raw,
		SourceName: sourceName,
	}
}
