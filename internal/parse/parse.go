package parse

import "github.com/willibrandon/pgtail/internal/record"

// ParseLine dispatches a single raw line to the parser matching format.
func ParseLine(format record.Format, line, sourceName string) record.LogRecord {
	switch format {
	case record.FormatJSON:
		return ParseJSONLine(line, sourceName)
	case record.FormatCSV:
		fields, err := splitCSVLine(line)
		if err != nil {
			return record.Fallback(line, sourceName)
		}
		return ParseCSVRecord(fields, line, sourceName)
	default:
		return ParseTextLine(line, sourceName)
	}
}

func splitCSVLine(line string) ([]string, error) {
	r := newLazyCSVReader(line)
	return r.Read()
}
