package parse

import (
	"encoding/csv"
	"strings"
)

// newLazyCSVReader builds a csv.Reader tolerant of PostgreSQL's csvlog
// quoting (doubled quotes, embedded newlines inside quoted fields) for a
// single already-assembled logical line.
func newLazyCSVReader(line string) *csv.Reader {
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r
}
