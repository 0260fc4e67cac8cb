// Package aggregate implements the session-scoped statistics collectors:
// ErrorStats, ConnectionStats, and DurationStats.
package aggregate

import (
	"sync"
	"time"

	"github.com/willibrandon/pgtail/internal/record"
)

const maxErrorEvents = 10000

// sqlstateClasses maps a SQLSTATE's 2-character class prefix to a
// human-readable category.
var sqlstateClasses = map[string]string{
	"00": "Successful Completion", "01": "Warning", "02": "No Data",
	"03": "SQL Statement Not Yet Complete", "08": "Connection Exception",
	"09": "Triggered Action Exception", "0A": "Feature Not Supported",
	"0B": "Invalid Transaction Initiation", "0F": "Locator Exception",
	"0L": "Invalid Grantor", "0P": "Invalid Role Specification",
	"0Z": "Diagnostics Exception", "20": "Case Not Found",
	"21": "Cardinality Violation", "22": "Data Exception",
	"23": "Integrity Constraint Violation", "24": "Invalid Cursor State",
	"25": "Invalid Transaction State", "26": "Invalid SQL Statement Name",
	"27": "Triggered Data Change Violation", "28": "Invalid Authorization Specification",
	"2B": "Dependent Privilege Descriptors Still Exist", "2D": "Invalid Transaction Termination",
	"2F": "SQL Routine Exception", "34": "Invalid Cursor Name",
	"38": "External Routine Exception", "39": "External Routine Invocation Exception",
	"3B": "Savepoint Exception", "3D": "Invalid Catalog Name",
	"3F": "Invalid Schema Name", "40": "Transaction Rollback",
	"42": "Syntax Error or Access Rule Violation", "44": "WITH CHECK OPTION Violation",
	"53": "Insufficient Resources", "54": "Program Limit Exceeded",
	"55": "Object Not In Prerequisite State", "57": "Operator Intervention",
	"58": "System Error", "72": "Snapshot Failure",
	"F0": "Configuration File Error", "HV": "Foreign Data Wrapper Error",
	"P0": "PL/pgSQL Error", "XX": "Internal Error",
}

// sqlstateNames maps well-known 5-character SQLSTATE codes to names.
var sqlstateNames = map[string]string{
	"23505": "unique_violation", "23503": "foreign_key_violation",
	"23502": "not_null_violation", "23514": "check_violation",
	"23P01": "exclusion_violation", "42601": "syntax_error",
	"42P01": "undefined_table", "42P02": "undefined_parameter",
	"42703": "undefined_column", "42883": "undefined_function",
	"42704": "undefined_object", "28000": "invalid_authorization_specification",
	"28P01": "invalid_password", "08006": "connection_failure",
	"08001": "sqlclient_unable_to_establish_sqlconnection",
	"08003": "connection_does_not_exist", "08004": "sqlserver_rejected_establishment_of_sqlconnection",
	"57014": "query_canceled", "53300": "too_many_connections",
	"53200": "out_of_memory", "55P03": "lock_not_available",
	"40001": "serialization_failure", "40P01": "deadlock_detected",
	"25P02": "in_failed_sql_transaction",
}

// SQLStateName returns a human-readable name for a 5-char SQLSTATE code.
func SQLStateName(code string) (string, bool) {
	name, ok := sqlstateNames[code]
	return name, ok
}

// SQLStateCategory returns the class category for a SQLSTATE's first two
// characters.
func SQLStateCategory(code string) (string, bool) {
	if len(code) < 2 {
		return "", false
	}
	cat, ok := sqlstateClasses[code[:2]]
	return cat, ok
}

var errorLevels = map[record.Level]bool{record.Panic: true, record.Fatal: true, record.Error: true}
var warningLevels = map[record.Level]bool{record.Warning: true}

// errorEvent is one admitted record's summary, kept in the bounded deque.
type errorEvent struct {
	ts        time.Time
	hasTS     bool
	level     record.Level
	sqlState  string
	pid       int
	database  string
	user      string
	msgPrefix string
}

// ErrorStats accumulates counts and a bounded history of ERROR-class
// (PANIC/FATAL/ERROR/WARNING) records for the current session.
type ErrorStats struct {
	mu             sync.Mutex
	events         []errorEvent
	countsByLevel  map[record.Level]int
	countsBySQL    map[string]int
}

// NewErrorStats constructs an empty ErrorStats collector.
func NewErrorStats() *ErrorStats {
	return &ErrorStats{
		countsByLevel: make(map[record.Level]int),
		countsBySQL:   make(map[string]int),
	}
}

// Admit records a new entry if its level is PANIC/FATAL/ERROR/WARNING.
func (s *ErrorStats) Admit(rec record.LogRecord) {
	if !errorLevels[rec.Level] && !warningLevels[rec.Level] {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := rec.Message
	if len(prefix) > 80 {
		prefix = prefix[:80]
	}

	ev := errorEvent{
		ts: rec.Timestamp, hasTS: rec.HasTime, level: rec.Level,
		sqlState: rec.SQLState, pid: rec.PID, database: rec.Database,
		user: rec.User, msgPrefix: prefix,
	}

	s.events = append(s.events, ev)
	if len(s.events) > maxErrorEvents {
		s.events = s.events[len(s.events)-maxErrorEvents:]
	}

	s.countsByLevel[rec.Level]++
	if rec.SQLState != "" {
		s.countsBySQL[rec.SQLState]++
	}
}

// Clear resets every counter and the event deque.
func (s *ErrorStats) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
	s.countsByLevel = make(map[record.Level]int)
	s.countsBySQL = make(map[string]int)
}

// CountByLevel returns the running count for a level.
func (s *ErrorStats) CountByLevel(l record.Level) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countsByLevel[l]
}

// CountBySQLState returns the running count for a SQLSTATE code.
func (s *ErrorStats) CountBySQLState(code string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countsBySQL[code]
}

// TrendBucket is one per-minute bucket of error counts.
type TrendBucket struct {
	BucketStart time.Time
	Count       int
}

// TrendBuckets returns per-minute error counts over the last `minutes`
// minutes, oldest first.
func (s *ErrorStats) TrendBuckets(minutes int, now time.Time) []TrendBucket {
	s.mu.Lock()
	defer s.mu.Unlock()

	buckets := make([]TrendBucket, minutes)
	start := now.Truncate(time.Minute).Add(-time.Duration(minutes-1) * time.Minute)
	for i := range buckets {
		buckets[i] = TrendBucket{BucketStart: start.Add(time.Duration(i) * time.Minute)}
	}

	for _, ev := range s.events {
		if !ev.hasTS {
			continue
		}
		delta := ev.ts.Truncate(time.Minute).Sub(start)
		idx := int(delta / time.Minute)
		if idx >= 0 && idx < len(buckets) {
			buckets[idx].Count++
		}
	}

	return buckets
}

// EventCount returns the number of events currently retained.
func (s *ErrorStats) EventCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}
