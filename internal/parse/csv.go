package parse

import (
	"strconv"
	"strings"

	"github.com/willibrandon/pgtail/internal/record"
)

// CSV column order for PostgreSQL's csvlog format, PG 14+ (26 columns).
// Older servers omit trailing columns; the parser tolerates any count >= 14.
const (
	csvLogTime = iota
	csvUserName
	csvDatabaseName
	csvProcessID
	csvConnectionFrom
	csvSessionID
	csvSessionLineNum
	csvCommandTag
	csvSessionStartTime
	csvVirtualTransactionID
	csvTransactionID
	csvErrorSeverity
	csvSQLStateCode
	csvMessage
	csvDetail
	csvHint
	csvInternalQuery
	csvInternalQueryPos
	csvContext
	csvQuery
	csvQueryPos
	csvLocation
	csvApplicationName
	csvBackendType
	csvLeaderPID
	csvQueryID
)

var csvLevelMap = map[string]record.Level{
	"PANIC": record.Panic, "FATAL": record.Fatal, "ERROR": record.Error,
	"WARNING": record.Warning, "NOTICE": record.Notice, "LOG": record.Log,
	"INFO": record.Info,
	"DEBUG": record.Debug1, "DEBUG1": record.Debug1, "DEBUG2": record.Debug2,
	"DEBUG3": record.Debug3, "DEBUG4": record.Debug4, "DEBUG5": record.Debug5,
}

// ParseCSVRecord builds a LogRecord from one already-split csvlog row.
// Missing trailing columns and empty optional fields become absent; integer
// fields that fail to parse become absent rather than erroring.
func ParseCSVRecord(fields []string, raw, sourceName string) record.LogRecord {
	get := func(i int) string {
		if i < 0 || i >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[i])
	}
	getInt := func(i int) (int, bool) {
		s := get(i)
		if s == "" {
			return 0, false
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, false
		}
		return n, true
	}

	rec := record.LogRecord{
		Raw:        raw,
		Format:     record.FormatCSV,
		SourceName: sourceName,
	}

	if ts, ok := ParseTimestamp(get(csvLogTime)); ok {
		rec.Timestamp = ts
		rec.HasTime = true
	}

	levelStr := strings.ToUpper(get(csvErrorSeverity))
	if lvl, ok := csvLevelMap[levelStr]; ok {
		rec.Level = lvl
	} else {
		rec.Level = record.Log
	}

	rec.Message = get(csvMessage)
	rec.User = get(csvUserName)
	rec.Database = get(csvDatabaseName)
	if pid, ok := getInt(csvProcessID); ok {
		rec.PID = pid
		rec.HasPID = true
	}
	rec.RemoteHost = get(csvConnectionFrom)
	rec.SessionID = get(csvSessionID)
	if n, ok := getInt(csvSessionLineNum); ok {
		rec.SessionLineNum = n
		rec.HasSessionLineNum = true
	}
	if ts, ok := ParseTimestamp(get(csvSessionStartTime)); ok {
		rec.SessionStart = ts
		rec.HasSessionStart = true
	}
	rec.VirtualTxID = get(csvVirtualTransactionID)
	rec.TxID = get(csvTransactionID)
	rec.SQLState = get(csvSQLStateCode)
	rec.Detail = get(csvDetail)
	rec.Hint = get(csvHint)
	rec.InternalQuery = get(csvInternalQuery)
	if n, ok := getInt(csvInternalQueryPos); ok {
		rec.InternalQueryPos = n
		rec.HasInternalQPos = true
	}
	rec.Context = get(csvContext)
	rec.Query = get(csvQuery)
	if n, ok := getInt(csvQueryPos); ok {
		rec.QueryPos = n
		rec.HasQueryPos = true
	}
	rec.Location = get(csvLocation)
	rec.Application = get(csvApplicationName)
	rec.BackendType = get(csvBackendType)
	if n, ok := getInt(csvLeaderPID); ok {
		rec.LeaderPID = n
		rec.HasLeaderPID = true
	}
	rec.QueryID = get(csvQueryID)

	return rec
}
