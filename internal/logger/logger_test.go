package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		"ERROR":   LevelError,
		"none":    LevelNone,
		"bogus":   LevelInfo,
	}

	for input, want := range cases {
		if got := ParseLevel(input); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewWithWriter(LevelWarn, &buf, "")

	l.Debug("should not appear")
	l.Info("should not appear either")
	l.Warn("warning %d", 1)
	l.Error("error %s", "boom")

	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Errorf("filtered levels leaked into output: %q", out)
	}
	if !strings.Contains(out, "[WARN] warning 1") {
		t.Errorf("missing warn line: %q", out)
	}
	if !strings.Contains(out, "[ERROR] error boom") {
		t.Errorf("missing error line: %q", out)
	}
}

func TestLoggerWithPrefix(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewWithWriter(LevelDebug, &buf, "orchestrator")

	child := l.WithPrefix("dispatch")
	child.Info("queued")

	if !strings.Contains(buf.String(), "[orchestrator.dispatch] queued") {
		t.Errorf("expected nested prefix, got %q", buf.String())
	}
}

func TestNewFileLogger(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "ocode.log")
	l, err := New(LevelInfo, path, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	l.Info("hello file")
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "hello file") {
		t.Errorf("log file missing entry: %q", string(data))
	}
}

func TestSlogHandlerForwardsRecords(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewWithWriter(LevelDebug, &buf, "")

	slogger := slog.New(NewSlogHandler(l))
	slogger.Info("supervisor started", "pid", 42, "pgid", 42)
	slogger.Warn("slow teardown")

	out := buf.String()
	if !strings.Contains(out, "[INFO] supervisor started pid=42 pgid=42") {
		t.Errorf("missing forwarded info record: %q", out)
	}
	if !strings.Contains(out, "[WARN] slow teardown") {
		t.Errorf("missing forwarded warn record: %q", out)
	}
}
