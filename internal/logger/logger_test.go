package logger

import (
	"path/filepath"
	"testing"
)

func TestInitLoggerCapturesWarnAndErrorCounts(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "pgtail.log")
	InitLogger(LevelDebug, logPath)
	defer Close()

	if !IsDebugEnabled() {
		t.Fatal("expected debug mode enabled for LevelDebug")
	}

	Debug("debug message")
	Warn("warn message")
	Error("error message")

	warn, err := GetCounts()
	if warn != 1 || err != 1 {
		t.Fatalf("GetCounts() = (%d, %d), want (1, 1)", warn, err)
	}

	entries := GetEntries()
	var sawWarn, sawError, sawDebug bool
	for _, e := range entries {
		switch e.Message {
		case "warn message":
			sawWarn = true
		case "error message":
			sawError = true
		case "debug message":
			sawDebug = true
		}
	}
	if !sawWarn || !sawError {
		t.Fatalf("expected WARN and ERROR entries captured, got %+v", entries)
	}
	if sawDebug {
		t.Fatalf("expected DEBUG entries not captured by the debug buffer, got %+v", entries)
	}

	ClearCounts()
	warn, err = GetCounts()
	if warn != 0 || err != 0 {
		t.Fatalf("GetCounts() after ClearCounts = (%d, %d), want (0, 0)", warn, err)
	}
}

func TestInitLoggerInfoLevelDisablesDebugMode(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "pgtail.log")
	InitLogger(LevelInfo, logPath)
	defer Close()

	if IsDebugEnabled() {
		t.Fatal("expected debug mode disabled for LevelInfo")
	}
}

func TestLogEntryFormat(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "pgtail.log")
	InitLogger(LevelDebug, logPath)
	defer Close()

	Error("boom")
	entries := GetEntries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 captured entry, got %d", len(entries))
	}
	if got := entries[0].Format(); got == "" {
		t.Fatalf("expected a non-empty formatted entry")
	}
}
