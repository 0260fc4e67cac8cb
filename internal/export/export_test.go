package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/willibrandon/pgtail/internal/record"
)

func sampleRecord() record.LogRecord {
	return record.LogRecord{
		HasTime:   true,
		Timestamp: time.Date(2024, 1, 15, 10, 30, 45, 123000000, time.UTC),
		Level:     record.Error,
		HasPID:    true,
		PID:       12345,
		Message:   "duplicate key",
		Raw:       "2024-01-15 10:30:45.123 UTC [12345] ERROR:  duplicate key",
	}
}

func TestFormatJSONLineFixedSchema(t *testing.T) {
	line, err := FormatJSONLine(sampleRecord())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(line, `"level":"ERROR"`) || !strings.Contains(line, `"pid":12345`) {
		t.Fatalf("unexpected JSON output: %s", line)
	}
}

func TestFormatCSVRowQuotesMessage(t *testing.T) {
	rec := sampleRecord()
	rec.Message = `has, a comma`
	row, err := FormatCSVRow(rec)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(row, `"has, a comma"`) {
		t.Fatalf("expected quoted field, got %s", row)
	}
}

func TestToFileWritesCSVHeaderOnlyWhenNotAppending(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")

	n, err := ToFile([]record.LogRecord{sampleRecord()}, path, FormatCSV, false, false)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 record written, got %d", n)
	}
	data, _ := os.ReadFile(path)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if lines[0] != CSVHeader {
		t.Fatalf("expected CSV header first, got %q", lines[0])
	}
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(lines))
	}

	n2, err := ToFile([]record.LogRecord{sampleRecord()}, path, FormatCSV, false, true)
	if err != nil {
		t.Fatal(err)
	}
	if n2 != 1 {
		t.Fatalf("expected 1 more record appended, got %d", n2)
	}
	data2, _ := os.ReadFile(path)
	lines2 := strings.Split(strings.TrimRight(string(data2), "\n"), "\n")
	if len(lines2) != 3 {
		t.Fatalf("expected header + 2 rows after append, got %d lines", len(lines2))
	}
}

func TestStripANSIRemovesEscapeCodes(t *testing.T) {
	styled := "\x1b[31mred text\x1b[0m"
	if got := stripANSI(styled); got != "red text" {
		t.Fatalf("expected stripped text, got %q", got)
	}
}

func TestSplitCommandHonorsQuotes(t *testing.T) {
	args, err := splitCommand(`grep -E "foo bar" --color=auto`)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"grep", "-E", "foo bar", "--color=auto"}
	if len(args) != len(want) {
		t.Fatalf("expected %v, got %v", want, args)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, args)
		}
	}
}

func TestToCommandPipesFormattedLines(t *testing.T) {
	result, err := ToCommand([]record.LogRecord{sampleRecord(), sampleRecord()}, "cat", FormatText, false)
	if err != nil {
		t.Fatal(err)
	}
	if result.Count != 2 {
		t.Fatalf("expected 2 records piped, got %d", result.Count)
	}
	if !strings.Contains(result.Stdout, "duplicate key") {
		t.Fatalf("expected piped output to contain record text, got %q", result.Stdout)
	}
}
