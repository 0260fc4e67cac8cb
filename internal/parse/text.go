package parse

import (
	"regexp"
	"strconv"

	"github.com/willibrandon/pgtail/internal/record"
)

// textLineRe matches the default PostgreSQL stderr log_line_prefix shape:
//
//	2024-01-15 10:30:45.123 UTC [12345] ERROR:  message
var textLineRe = regexp.MustCompile(
	`^(?P<ts>\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}(?:\.\d+)?(?: [A-Za-z]+)?)\s+` +
		`\[(?P<pid>\d+)\]\s+` +
		`(?P<level>PANIC|FATAL|ERROR|WARNING|NOTICE|LOG|INFO|DEBUG[1-5]?):\s*` +
		`(?P<message>.*)$`,
)

// textBracketRe matches the bracketed-prefix shape:
//
//	[2024-01-15 10:30:45.123 UTC] [12345] [some context] ERROR: message
var textBracketRe = regexp.MustCompile(
	`^\[(?P<ts>\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}(?:\.\d+)?(?: [A-Za-z]+)?)\]\s+` +
		`\[(?P<pid>\d+)\]\s+` +
		`\[(?P<context>[^\]]*)\]\s+` +
		`(?P<level>PANIC|FATAL|ERROR|WARNING|NOTICE|LOG|INFO|DEBUG[1-5]?):\s*` +
		`(?P<message>.*)$`,
)

var textLevelMap = map[string]record.Level{
	"PANIC": record.Panic, "FATAL": record.Fatal, "ERROR": record.Error,
	"WARNING": record.Warning, "NOTICE": record.Notice, "LOG": record.Log,
	"INFO": record.Info,
	"DEBUG": record.Debug1, "DEBUG1": record.Debug1, "DEBUG2": record.Debug2,
	"DEBUG3": record.Debug3, "DEBUG4": record.Debug4, "DEBUG5": record.Debug5,
}

// ParseTextLine parses one line of stderr-format PostgreSQL log output.
// Lines that match neither known shape fall back to a LOG-level record
// carrying only the raw text.
func ParseTextLine(line, sourceName string) record.LogRecord {
	raw := line

	if m := textLineRe.FindStringSubmatch(line); m != nil {
		return buildTextRecord(m, textLineRe, raw, sourceName, "")
	}
	if m := textBracketRe.FindStringSubmatch(line); m != nil {
		ctxIdx := textBracketRe.SubexpIndex("context")
		ctx := m[ctxIdx]
		return buildTextRecord(m, textBracketRe, raw, sourceName, ctx)
	}

	rec := record.Fallback(raw, sourceName)
	rec.Format = record.FormatText
	return rec
}

func buildTextRecord(m []string, re *regexp.Regexp, raw, sourceName, context string) record.LogRecord {
	get := func(name string) string {
		idx := re.SubexpIndex(name)
		if idx < 0 || idx >= len(m) {
			return ""
		}
		return m[idx]
	}

	rec := record.LogRecord{
		Raw:        raw,
		Format:     record.FormatText,
		SourceName: sourceName,
		Context:    context,
	}

	if ts, ok := ParseTimestamp(get("ts")); ok {
		rec.Timestamp = ts
		rec.HasTime = true
	}
	if pidStr := get("pid"); pidStr != "" {
		if pid, err := strconv.Atoi(pidStr); err == nil {
			rec.PID = pid
			rec.HasPID = true
		}
	}
	levelStr := get("level")
	if lvl, ok := textLevelMap[levelStr]; ok {
		rec.Level = lvl
	} else {
		rec.Level = record.Log
	}
	rec.Message = get("message")

	return rec
}
