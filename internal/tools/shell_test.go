package tools

import (
	"context"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/haasonsaas/ocode/internal/config"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell required")
	}
}

func testDefaults() config.ExecutionConfig {
	return config.ExecutionConfig{
		MaxConcurrent:         5,
		DefaultTimeoutSeconds: 30,
		KillTimeoutSeconds:    5,
		MaxOutputBytes:        1 << 20,
	}
}

func TestShellToolEcho(t *testing.T) {
	skipOnWindows(t)
	t.Parallel()

	tool := NewShellTool(t.TempDir(), testDefaults())
	res := tool.Execute(context.Background(), map[string]interface{}{
		"command": "echo hello",
	})

	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
	if strings.TrimSpace(res.Output) != "hello" {
		t.Errorf("output = %q", res.Output)
	}
	if res.Metadata[MetaExitStatus] != 0 {
		t.Errorf("exit_status = %v", res.Metadata[MetaExitStatus])
	}
}

func TestShellToolMissingCommand(t *testing.T) {
	t.Parallel()

	tool := NewShellTool("", testDefaults())
	res := tool.Execute(context.Background(), map[string]interface{}{})

	if res.Success || res.ErrorKind() != ErrKindValidation {
		t.Errorf("result = %+v", res)
	}
}

func TestShellToolBadWorkingDir(t *testing.T) {
	t.Parallel()

	tool := NewShellTool("", testDefaults())
	res := tool.Execute(context.Background(), map[string]interface{}{
		"command":     "echo hi",
		"working_dir": "/no/such/directory/anywhere",
	})

	if res.Success || res.ErrorKind() != ErrKindValidation {
		t.Errorf("result = %+v", res)
	}
}

func TestShellToolNonZeroExit(t *testing.T) {
	skipOnWindows(t)
	t.Parallel()

	tool := NewShellTool(t.TempDir(), testDefaults())
	res := tool.Execute(context.Background(), map[string]interface{}{
		"command": "echo partial; exit 4",
	})

	if res.Success {
		t.Fatal("expected failure")
	}
	// A plain non-zero exit is an unsuccessful run, not a fault.
	if res.ErrorKind() != "" {
		t.Errorf("error_type = %q, want none", res.ErrorKind())
	}
	if res.Metadata[MetaExitStatus] != 4 {
		t.Errorf("exit_status = %v", res.Metadata[MetaExitStatus])
	}
	if !strings.Contains(res.Output, "partial") {
		t.Errorf("stdout lost: %q", res.Output)
	}
}

func TestShellToolStderrBecomesError(t *testing.T) {
	skipOnWindows(t)
	t.Parallel()

	tool := NewShellTool(t.TempDir(), testDefaults())
	res := tool.Execute(context.Background(), map[string]interface{}{
		"command": "echo broken >&2; exit 1",
	})

	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Error, "broken") {
		t.Errorf("error = %q", res.Error)
	}
}

func TestShellToolTimeout(t *testing.T) {
	skipOnWindows(t)
	t.Parallel()

	tool := NewShellTool(t.TempDir(), testDefaults())
	start := time.Now()
	res := tool.Execute(context.Background(), map[string]interface{}{
		"command":      "echo before; sleep 10",
		"timeout":      1.0,
		"kill_timeout": 0.5,
	})
	elapsed := time.Since(start)

	if res.Success {
		t.Fatal("expected timeout failure")
	}
	if res.ErrorKind() != ErrKindTimeout {
		t.Errorf("error_type = %q", res.ErrorKind())
	}
	if !strings.Contains(res.Output, "before") {
		t.Errorf("partial output lost: %q", res.Output)
	}
	if elapsed > 5*time.Second {
		t.Errorf("escalation took %s", elapsed)
	}
}

func TestShellToolFractionalTimeout(t *testing.T) {
	skipOnWindows(t)
	t.Parallel()

	// Sub-second timeouts must not truncate to zero and fall back to the
	// 30s default.
	tool := NewShellTool(t.TempDir(), testDefaults())
	start := time.Now()
	res := tool.Execute(context.Background(), map[string]interface{}{
		"command":      "sleep 3",
		"timeout":      0.5,
		"kill_timeout": 0.5,
	})
	elapsed := time.Since(start)

	if res.Success {
		t.Fatalf("expected timeout failure, got %+v", res)
	}
	if res.ErrorKind() != ErrKindTimeout {
		t.Errorf("error_type = %q, want %q", res.ErrorKind(), ErrKindTimeout)
	}
	if elapsed >= 3*time.Second {
		t.Errorf("command ran to completion in %s; timeout never armed", elapsed)
	}
}

func TestSecondsToDuration(t *testing.T) {
	t.Parallel()

	if got := secondsToDuration(0.5); got != 500*time.Millisecond {
		t.Errorf("secondsToDuration(0.5) = %s", got)
	}
	if got := secondsToDuration(30); got != 30*time.Second {
		t.Errorf("secondsToDuration(30) = %s", got)
	}
}

func TestShellToolCancellation(t *testing.T) {
	skipOnWindows(t)
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(300 * time.Millisecond)
		cancel()
	}()

	tool := NewShellTool(t.TempDir(), testDefaults())
	res := tool.Execute(ctx, map[string]interface{}{
		"command":      "sleep 10",
		"kill_timeout": 0.5,
	})

	if res.Success {
		t.Fatal("expected failure")
	}
	if res.ErrorKind() != ErrKindTimeout {
		t.Errorf("error_type = %q", res.ErrorKind())
	}
	if canceled, _ := res.Metadata["canceled"].(bool); !canceled {
		t.Errorf("metadata = %v, want canceled=true", res.Metadata)
	}
}

func TestShellToolOutputCap(t *testing.T) {
	skipOnWindows(t)
	t.Parallel()

	defaults := testDefaults()
	tool := NewShellTool(t.TempDir(), defaults)
	res := tool.Execute(context.Background(), map[string]interface{}{
		"command":         "seq 1 100000",
		"max_output_size": 100000.0,
	})

	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
	if len(res.Output) > 100000 {
		t.Errorf("output length %d exceeds cap", len(res.Output))
	}
	if truncated, _ := res.Metadata[MetaTruncated].(bool); !truncated {
		t.Error("truncated flag not set")
	}
	if !strings.Contains(res.Output, "truncated") {
		t.Error("truncation marker missing")
	}
}

func TestShellToolStdinAndEnv(t *testing.T) {
	skipOnWindows(t)
	t.Parallel()

	tool := NewShellTool(t.TempDir(), testDefaults())
	res := tool.Execute(context.Background(), map[string]interface{}{
		"command":    `cat; printf '%s' "$GREETING"`,
		"input_data": "piped\n",
		"env_vars":   map[string]interface{}{"GREETING": "salut"},
	})

	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
	if !strings.Contains(res.Output, "piped") || !strings.Contains(res.Output, "salut") {
		t.Errorf("output = %q", res.Output)
	}
}

func TestShellToolCommandFromParams(t *testing.T) {
	t.Parallel()

	tool := NewShellTool("", testDefaults())

	if cmd, ok := tool.CommandFromParams(map[string]interface{}{"command": "ls -la"}); !ok || cmd != "ls -la" {
		t.Errorf("got %q, %v", cmd, ok)
	}
	if _, ok := tool.CommandFromParams(map[string]interface{}{}); ok {
		t.Error("empty params should not yield a command")
	}
}
