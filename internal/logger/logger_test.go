package logger

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestLogger(t *testing.T) (*Logger, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	l, err := New(t.TempDir(), &out, io.Discard)
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l, &out
}

func readLog(t *testing.T, l *Logger, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(l.Dir(), name))
	if err != nil {
		t.Fatalf("Failed to read %s: %v", name, err)
	}
	return string(data)
}

func TestLogger_WritesPerLevelFiles(t *testing.T) {
	l, out := newTestLogger(t)

	l.Info("run %d started", 1)
	l.Warning("nothing detected")
	l.Error("camera lost")

	if got := readLog(t, l, InfoFile); !strings.Contains(got, "run 1 started") {
		t.Errorf("info.log missing entry: %q", got)
	}
	if got := readLog(t, l, WarningFile); !strings.Contains(got, "nothing detected") {
		t.Errorf("warning.log missing entry: %q", got)
	}
	if got := readLog(t, l, ErrorFile); !strings.Contains(got, "camera lost") {
		t.Errorf("error.log missing entry: %q", got)
	}
	if strings.Contains(readLog(t, l, InfoFile), "camera lost") {
		t.Error("Error entry leaked into info.log")
	}
	if !strings.Contains(out.String(), "run 1 started") {
		t.Error("Info entry not echoed to stdout writer")
	}
	if !strings.Contains(readLog(t, l, InfoFile), "logger_test.go") {
		t.Error("Expected caller file in log entry")
	}
}

func TestLogger_CleanLogs(t *testing.T) {
	l, _ := newTestLogger(t)
	l.Error("first failure")

	if err := l.CleanLogs(ErrorFile); err != nil {
		t.Fatalf("CleanLogs failed: %v", err)
	}
	if got := readLog(t, l, ErrorFile); got != "" {
		t.Errorf("Expected empty error.log, got %q", got)
	}

	l.Error("second failure")
	if got := readLog(t, l, ErrorFile); !strings.Contains(got, "second failure") {
		t.Errorf("Expected logging to continue after clear, got %q", got)
	}
}

func TestLogger_CleanLogsRejectsUnknownFile(t *testing.T) {
	l, _ := newTestLogger(t)

	if err := l.CleanLogs("../config.env"); err == nil {
		t.Error("Expected error for unknown log file")
	}
}
