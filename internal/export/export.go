// Package export writes buffered log records to a file or an external
// command in TEXT, JSON, or CSV form.
package export

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/willibrandon/pgtail/internal/highlight"
	"github.com/willibrandon/pgtail/internal/record"
)

// Format is one of the three supported export encodings.
type Format int

const (
	FormatText Format = iota
	FormatJSON
	FormatCSV
)

// ParseFormat parses a case-insensitive format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	default:
		return 0, fmt.Errorf("unknown format %q, valid formats: text, json, csv", s)
	}
}

// CSVHeader is the fixed header row for CSV exports.
const CSVHeader = "timestamp,level,pid,message"

// jsonRecord is the fixed schema for JSON export: {timestamp, level, pid, message}.
type jsonRecord struct {
	Timestamp *string `json:"timestamp"`
	Level     string  `json:"level"`
	PID       *int    `json:"pid"`
	Message   string  `json:"message"`
}

// FormatTextLine renders rec as a raw line, optionally preserving inline style
// markup (ANSI escapes already baked into raw by the renderer).
func FormatTextLine(rec record.LogRecord, preserveMarkup bool) string {
	if preserveMarkup {
		return rec.Raw
	}
	return stripANSI(rec.Raw)
}

// FormatJSONLine renders rec as one JSON object: style markup is always
// stripped for JSON.
func FormatJSONLine(rec record.LogRecord) (string, error) {
	jr := jsonRecord{Level: rec.Level.String(), Message: stripANSI(rec.Message)}
	if rec.HasTime {
		ts := rec.Timestamp.Format(time.RFC3339Nano)
		jr.Timestamp = &ts
	}
	if rec.HasPID {
		pid := rec.PID
		jr.PID = &pid
	}
	b, err := json.Marshal(jr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// FormatCSVRow renders rec as one quoted CSV row: style markup is always
// stripped for CSV.
func FormatCSVRow(rec record.LogRecord) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	ts := ""
	if rec.HasTime {
		ts = rec.Timestamp.Format(time.RFC3339Nano)
	}
	pid := ""
	if rec.HasPID {
		pid = strconv.Itoa(rec.PID)
	}

	if err := w.Write([]string{ts, rec.Level.String(), pid, stripANSI(rec.Message)}); err != nil {
		return "", err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return strings.TrimRight(sb.String(), "\r\n"), nil
}

// FormatLine dispatches to the formatter matching fmt. preserveMarkup only
// affects TEXT; JSON and CSV always strip style markup.
func FormatLine(rec record.LogRecord, fmt_ Format, preserveMarkup bool) (string, error) {
	switch fmt_ {
	case FormatText:
		return FormatTextLine(rec, preserveMarkup), nil
	case FormatJSON:
		return FormatJSONLine(rec)
	case FormatCSV:
		return FormatCSVRow(rec)
	default:
		return "", fmt.Errorf("unknown export format %v", fmt_)
	}
}

func stripANSI(s string) string {
	return highlight.Strip(s)
}

// PreviewLine renders a human-friendly "wrote N records" style summary
// line for a completed export, e.g. for a --export or --pipe run.
func PreviewLine(count int, destination string, completedAt time.Time) string {
	return fmt.Sprintf("wrote %s record(s) to %s (%s)",
		humanize.Comma(int64(count)), destination, humanize.Time(completedAt))
}

// ensureParentDirs creates path's parent directories if they don't exist.
func ensureParentDirs(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

// ToFile writes records to path in the given format, truncating unless
// append is true. Returns the count written.
func ToFile(records []record.LogRecord, path string, fmt_ Format, preserveMarkup, appendMode bool) (int, error) {
	if err := ensureParentDirs(path); err != nil {
		return 0, err
	}

	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	defer w.Flush()

	if fmt_ == FormatCSV && !appendMode {
		if _, err := w.WriteString(CSVHeader + "\n"); err != nil {
			return 0, err
		}
	}

	count := 0
	for _, rec := range records {
		line, err := FormatLine(rec, fmt_, preserveMarkup)
		if err != nil {
			return count, err
		}
		if _, err := w.WriteString(line + "\n"); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// PipeResult summarizes the outcome of piping records to an external
// command.
type PipeResult struct {
	Count    int
	ExitCode int
	Stdout   string
	Stderr   string
}

// ToCommand streams formatted records to command's stdin and captures its
// output. A broken pipe (the command exited early, e.g. `head -n 10`) is
// treated as a normal, non-error termination.
func ToCommand(records []record.LogRecord, command string, fmt_ Format, preserveMarkup bool) (PipeResult, error) {
	args, err := splitCommand(command)
	if err != nil {
		return PipeResult{}, err
	}
	if len(args) == 0 {
		return PipeResult{}, fmt.Errorf("pipe command cannot be empty")
	}

	cmd := exec.Command(args[0], args[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return PipeResult{}, err
	}
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return PipeResult{}, err
	}

	count := 0
	w := bufio.NewWriter(stdin)
	for _, rec := range records {
		line, err := FormatLine(rec, fmt_, preserveMarkup)
		if err != nil {
			stdin.Close()
			cmd.Wait()
			return PipeResult{Count: count}, err
		}
		if _, err := w.WriteString(line + "\n"); err != nil {
			break // broken pipe: the command exited early, not an error
		}
		count++
	}
	w.Flush()
	stdin.Close()

	_ = cmd.Wait()
	exitCode := 0
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}

	return PipeResult{Count: count, ExitCode: exitCode, Stdout: stdout.String(), Stderr: stderr.String()}, nil
}

// WarnNoColor returns msg in a yellow warning color, using the same
// fatih/color the CLI uses for status output.
func WarnNoColor(msg string) string {
	return color.YellowString(msg)
}

// splitCommand tokenizes a shell-style command line (honoring quotes),
// mirroring shlex.split for the POSIX case; Windows has no shell-less
// equivalent so the raw string is run through /bin/sh-style quoting rules
// regardless of GOOS, matching the rest of the toolchain's POSIX-first
// testing story.
func splitCommand(s string) ([]string, error) {
	var args []string
	var cur strings.Builder
	inSingle, inDouble := false, false
	hasToken := false

	flush := func() {
		if hasToken {
			args = append(args, cur.String())
			cur.Reset()
			hasToken = false
		}
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inSingle:
			if c == '\'' {
				inSingle = false
			} else {
				cur.WriteByte(c)
			}
		case inDouble:
			if c == '"' {
				inDouble = false
			} else {
				cur.WriteByte(c)
			}
		case c == '\'':
			inSingle, hasToken = true, true
		case c == '"':
			inDouble, hasToken = true, true
		case c == ' ' || c == '\t':
			flush()
		default:
			cur.WriteByte(c)
			hasToken = true
		}
	}
	if inSingle || inDouble {
		return nil, fmt.Errorf("unterminated quote in command: %s", s)
	}
	flush()
	return args, nil
}
