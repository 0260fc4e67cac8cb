package parse

import (
	"encoding/csv"
	"encoding/json"
	"strings"

	"github.com/willibrandon/pgtail/internal/record"
)

var validSeverities = map[string]bool{
	"DEBUG5": true, "DEBUG4": true, "DEBUG3": true, "DEBUG2": true, "DEBUG1": true,
	"DEBUG": true, "INFO": true, "NOTICE": true, "WARNING": true, "ERROR": true,
	"LOG": true, "FATAL": true, "PANIC": true,
}

// DetectFormat inspects the first non-empty line of a source and returns
// the format that should be used to parse every subsequent line until the
// source is rotated.
func DetectFormat(line string) record.Format {
	line = strings.TrimSpace(line)
	if line == "" {
		return record.FormatText
	}
	if strings.HasPrefix(line, "{") && isValidJSONLog(line) {
		return record.FormatJSON
	}
	if isValidCSVLog(line) {
		return record.FormatCSV
	}
	return record.FormatText
}

func isValidJSONLog(line string) bool {
	var data map[string]any
	if err := json.Unmarshal([]byte(line), &data); err != nil {
		return false
	}
	sevRaw, okSev := data["error_severity"]
	_, okMsg := data["message"]
	if !okSev || !okMsg {
		return false
	}
	sev, ok := sevRaw.(string)
	if !ok {
		return false
	}
	return validSeverities[strings.ToUpper(sev)]
}

func isValidCSVLog(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	fields, err := r.Read()
	if err != nil {
		return false
	}
	if len(fields) < 22 || len(fields) > 26 {
		return false
	}
	ts := fields[0]
	if len(ts) < 19 {
		return false
	}
	if ts[4] != '-' || ts[7] != '-' || ts[10] != ' ' || ts[13] != ':' || ts[16] != ':' {
		return false
	}
	if len(fields) > 11 {
		if !validSeverities[strings.ToUpper(fields[11])] {
			return false
		}
	}
	return true
}
