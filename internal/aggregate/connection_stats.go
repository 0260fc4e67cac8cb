package aggregate

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/willibrandon/pgtail/internal/record"
)

// ConnectionEventType classifies one admitted connection-related record.
type ConnectionEventType int

const (
	Connect ConnectionEventType = iota
	Disconnect
	ConnectionFailed
)

// ConnectionEvent is one tracked connect/disconnect/failure.
type ConnectionEvent struct {
	Timestamp       time.Time
	Type            ConnectionEventType
	PID             int
	User            string
	Database        string
	Application     string
	Host            string
	Port            int
	DurationSeconds float64
	HasDuration     bool
}

var (
	connAuthorizedRe = regexp.MustCompile(
		`connection authorized:\s+user=(\S+)\s+database=(\S+)(?:\s+application_name=(\S+))?`)
	disconnectionRe = regexp.MustCompile(
		`disconnection:\s+session time:\s+([\d:.]+)\s+user=(\S+)\s+database=(\S+)\s+host=(\S+)(?:\s+port=(\d+))?`)
)

var fatalConnectionPhrases = []string{
	"too many connections", "too many clients already", "connection limit exceeded",
	"password authentication failed", "no pg_hba.conf entry",
	"database .* does not exist", "role .* does not exist", "authentication failed",
}

var fatalConnectionRes = compileFatalPatterns()

func compileFatalPatterns() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(fatalConnectionPhrases))
	for i, p := range fatalConnectionPhrases {
		out[i] = regexp.MustCompile("(?i)" + p)
	}
	return out
}

// parseSessionDuration parses PostgreSQL's "H:MM:SS.fff" session-time
// format into seconds.
func parseSessionDuration(s string) (float64, bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, false
	}
	hours, err1 := strconv.Atoi(parts[0])
	minutes, err2 := strconv.Atoi(parts[1])
	seconds, err3 := strconv.ParseFloat(parts[2], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, false
	}
	return float64(hours)*3600 + float64(minutes)*60 + seconds, true
}

// eventFromRecord classifies rec as a connection event, preferring
// structured CSV/JSON fields over anything parsed from the message text.
func eventFromRecord(rec record.LogRecord) (ConnectionEvent, bool) {
	msg := rec.Message
	ts := rec.Timestamp
	if !rec.HasTime {
		ts = time.Now().UTC()
	}

	if m := connAuthorizedRe.FindStringSubmatch(msg); m != nil {
		app := m[3]
		if rec.Application != "" {
			app = rec.Application
		} else if app == "" {
			app = "unknown"
		}
		user := m[1]
		if rec.User != "" {
			user = rec.User
		}
		db := m[2]
		if rec.Database != "" {
			db = rec.Database
		}
		host := rec.RemoteHost
		var port int
		if rec.HasRemotePort {
			port = rec.RemotePort
		}
		return ConnectionEvent{
			Timestamp: ts, Type: Connect, PID: rec.PID, User: user,
			Database: db, Application: app, Host: host, Port: port,
		}, true
	}

	if m := disconnectionRe.FindStringSubmatch(msg); m != nil {
		user := m[2]
		if rec.User != "" {
			user = rec.User
		}
		db := m[3]
		if rec.Database != "" {
			db = rec.Database
		}
		host := m[4]
		if rec.RemoteHost != "" {
			host = rec.RemoteHost
		}
		var port int
		if rec.HasRemotePort {
			port = rec.RemotePort
		} else if m[5] != "" {
			port, _ = strconv.Atoi(m[5])
		}
		ev := ConnectionEvent{
			Timestamp: ts, Type: Disconnect, PID: rec.PID, User: user,
			Database: db, Host: host, Port: port,
			Application: orUnknown(rec.Application),
		}
		if dur, ok := parseSessionDuration(m[1]); ok {
			ev.DurationSeconds = dur
			ev.HasDuration = true
		}
		return ev, true
	}

	if rec.Level == record.Fatal {
		lower := strings.ToLower(msg)
		for _, re := range fatalConnectionRes {
			if re.MatchString(lower) {
				return ConnectionEvent{
					Timestamp: ts, Type: ConnectionFailed, PID: rec.PID,
					User: rec.User, Database: rec.Database, Application: orUnknown(rec.Application),
					Host: rec.RemoteHost,
				}, true
			}
		}
	}

	return ConnectionEvent{}, false
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// ConnectionStats tracks connection/disconnection/failure events for the
// session, plus the live set of currently-connected PIDs.
type ConnectionStats struct {
	mu     sync.Mutex
	events []ConnectionEvent
	live   map[int]ConnectionEvent
}

// NewConnectionStats constructs an empty ConnectionStats collector.
func NewConnectionStats() *ConnectionStats {
	return &ConnectionStats{live: make(map[int]ConnectionEvent)}
}

// Admit classifies rec and updates counts/live map if it is
// connection-related. Returns the event and true if admitted.
func (s *ConnectionStats) Admit(rec record.LogRecord) (ConnectionEvent, bool) {
	ev, ok := eventFromRecord(rec)
	if !ok {
		return ConnectionEvent{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, ev)
	if len(s.events) > maxErrorEvents {
		s.events = s.events[len(s.events)-maxErrorEvents:]
	}

	switch ev.Type {
	case Connect:
		s.live[ev.PID] = ev
	case Disconnect:
		delete(s.live, ev.PID)
	}

	return ev, true
}

// ActiveCount returns the size of the live connection map.
func (s *ConnectionStats) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// ActiveBy groups live connections by the field extractor fn.
func (s *ConnectionStats) ActiveBy(fn func(ConnectionEvent) string) map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int)
	for _, ev := range s.live {
		out[fn(ev)]++
	}
	return out
}

// ActiveByDatabase groups live connections by database name.
func (s *ConnectionStats) ActiveByDatabase() map[string]int {
	return s.ActiveBy(func(e ConnectionEvent) string { return e.Database })
}

// ActiveByUser groups live connections by user name.
func (s *ConnectionStats) ActiveByUser() map[string]int {
	return s.ActiveBy(func(e ConnectionEvent) string { return e.User })
}

// ActiveByApplication groups live connections by application name.
func (s *ConnectionStats) ActiveByApplication() map[string]int {
	return s.ActiveBy(func(e ConnectionEvent) string { return e.Application })
}

// ActiveByHost groups live connections by client host.
func (s *ConnectionStats) ActiveByHost() map[string]int {
	return s.ActiveBy(func(e ConnectionEvent) string { return e.Host })
}

// ConnectionTrendBucket is one bucket's connect/disconnect counts.
type ConnectionTrendBucket struct {
	BucketStart time.Time
	Connects    int
	Disconnects int
}

// TrendBuckets returns fixed-size buckets of connect/disconnect counts over
// the last `minutes` minutes.
func (s *ConnectionStats) TrendBuckets(minutes, bucketSizeMinutes int, now time.Time) []ConnectionTrendBucket {
	s.mu.Lock()
	defer s.mu.Unlock()

	numBuckets := minutes / bucketSizeMinutes
	if numBuckets <= 0 {
		numBuckets = 1
	}
	bucketDur := time.Duration(bucketSizeMinutes) * time.Minute
	start := now.Truncate(time.Minute).Add(-time.Duration(numBuckets-1) * bucketDur)

	buckets := make([]ConnectionTrendBucket, numBuckets)
	for i := range buckets {
		buckets[i].BucketStart = start.Add(time.Duration(i) * bucketDur)
	}

	for _, ev := range s.events {
		idx := int(ev.Timestamp.Truncate(time.Minute).Sub(start) / bucketDur)
		if idx < 0 || idx >= numBuckets {
			continue
		}
		switch ev.Type {
		case Connect:
			buckets[idx].Connects++
		case Disconnect:
			buckets[idx].Disconnects++
		}
	}

	return buckets
}

// Clear resets events and the live map.
func (s *ConnectionStats) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
	s.live = make(map[int]ConnectionEvent)
}
