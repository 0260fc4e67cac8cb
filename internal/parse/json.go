package parse

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/willibrandon/pgtail/internal/record"
)

var jsonLevelMap = map[string]record.Level{
	"PANIC": record.Panic, "FATAL": record.Fatal, "ERROR": record.Error,
	"WARNING": record.Warning, "NOTICE": record.Notice, "LOG": record.Log,
	"INFO": record.Info,
	"DEBUG": record.Debug1, "DEBUG1": record.Debug1, "DEBUG2": record.Debug2,
	"DEBUG3": record.Debug3, "DEBUG4": record.Debug4, "DEBUG5": record.Debug5,
	"STATEMENT": record.Log, "DETAIL": record.Log, "HINT": record.Log, "CONTEXT": record.Log,
}

// ParseJSONLine parses a single jsonlog line into a LogRecord. A line that
// is not a JSON object, or whose fields cannot be interpreted, falls back
// to a LOG-level record.
func ParseJSONLine(line, sourceName string) record.LogRecord {
	raw := strings.TrimRight(line, "\r\n")

	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return record.Fallback(raw, sourceName)
	}

	getStr := func(key string) string {
		v, ok := data[key]
		if !ok || v == nil {
			return ""
		}
		if s, ok := v.(string); ok {
			return s
		}
		return ""
	}
	getInt := func(key string) (int, bool) {
		v, ok := data[key]
		if !ok || v == nil {
			return 0, false
		}
		switch n := v.(type) {
		case float64:
			return int(n), true
		case string:
			i, err := strconv.Atoi(n)
			if err != nil {
				return 0, false
			}
			return i, true
		default:
			return 0, false
		}
	}

	sev := strings.ToUpper(getStr("error_severity"))
	lvl, ok := jsonLevelMap[sev]
	if !ok {
		lvl = record.Log
	}

	rec := record.LogRecord{
		Raw:        raw,
		Format:     record.FormatJSON,
		SourceName: sourceName,
		Level:      lvl,
		Message:    getStr("message"),
	}

	if ts, ok := ParseTimestamp(getStr("timestamp")); ok {
		rec.Timestamp = ts
		rec.HasTime = true
	}
	if pid, ok := getInt("pid"); ok {
		rec.PID = pid
		rec.HasPID = true
	}
	rec.User = getStr("user")
	rec.Database = getStr("dbname")
	rec.RemoteHost = getStr("remote_host")
	if port, ok := getInt("remote_port"); ok {
		rec.RemotePort = port
		rec.HasRemotePort = true
	}
	rec.SessionID = getStr("session_id")
	if n, ok := getInt("line_num"); ok {
		rec.SessionLineNum = n
		rec.HasSessionLineNum = true
	}
	if ts, ok := ParseTimestamp(getStr("session_start")); ok {
		rec.SessionStart = ts
		rec.HasSessionStart = true
	}
	rec.VirtualTxID = getStr("vxid")
	rec.TxID = getStr("txid")
	rec.SQLState = getStr("state_code")
	rec.Detail = getStr("detail")
	rec.Hint = getStr("hint")
	rec.InternalQuery = getStr("internal_query")
	if n, ok := getInt("internal_position"); ok {
		rec.InternalQueryPos = n
		rec.HasInternalQPos = true
	}
	rec.Context = getStr("context")
	rec.Query = getStr("statement")
	if n, ok := getInt("cursor_position"); ok {
		rec.QueryPos = n
		rec.HasQueryPos = true
	}
	rec.Application = getStr("application_name")
	rec.BackendType = getStr("backend_type")
	if n, ok := getInt("leader_pid"); ok {
		rec.LeaderPID = n
		rec.HasLeaderPID = true
	}
	if n, ok := getInt("query_id"); ok {
		rec.QueryID = strconv.Itoa(n)
	}

	return rec
}
