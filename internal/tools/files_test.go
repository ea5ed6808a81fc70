package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadFileTool(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "note.txt"), []byte("contents"), 0o644); err != nil {
		t.Fatal(err)
	}

	tool := NewReadFileTool(dir)
	res := tool.Execute(context.Background(), map[string]interface{}{"path": "note.txt"})

	if !res.Success || res.Output != "contents" {
		t.Errorf("result = %+v", res)
	}
}

func TestReadFileToolMissing(t *testing.T) {
	t.Parallel()

	tool := NewReadFileTool(t.TempDir())
	res := tool.Execute(context.Background(), map[string]interface{}{"path": "absent.txt"})

	if res.Success || res.ErrorKind() != ErrKindValidation {
		t.Errorf("result = %+v", res)
	}
}

func TestReadFileToolNoPath(t *testing.T) {
	t.Parallel()

	tool := NewReadFileTool("")
	res := tool.Execute(context.Background(), map[string]interface{}{})

	if res.Success || res.ErrorKind() != ErrKindValidation {
		t.Errorf("result = %+v", res)
	}
}

func TestWriteFileToolCreatesDirectories(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tool := NewWriteFileTool(dir)
	res := tool.Execute(context.Background(), map[string]interface{}{
		"path":    "nested/deep/out.txt",
		"content": "payload",
	})

	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
	data, err := os.ReadFile(filepath.Join(dir, "nested", "deep", "out.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "payload" {
		t.Errorf("file contents = %q", data)
	}
}

func TestWriteFileToolRequiresContent(t *testing.T) {
	t.Parallel()

	tool := NewWriteFileTool(t.TempDir())
	res := tool.Execute(context.Background(), map[string]interface{}{"path": "x.txt"})

	if res.Success || res.ErrorKind() != ErrKindValidation {
		t.Errorf("result = %+v", res)
	}
}

func TestLsTool(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"b.txt", "a.txt", ".hidden"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	tool := NewLsTool(dir)

	res := tool.Execute(context.Background(), map[string]interface{}{})
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
	lines := strings.Split(res.Output, "\n")
	want := []string{"a.txt", "b.txt", "sub/"}
	if len(lines) != len(want) {
		t.Fatalf("lines = %v", lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("lines[%d] = %q, want %q", i, lines[i], want[i])
		}
	}

	res = tool.Execute(context.Background(), map[string]interface{}{"all": true})
	if !strings.Contains(res.Output, ".hidden") {
		t.Errorf("all=true output = %q", res.Output)
	}
}

func TestLsToolMissingDir(t *testing.T) {
	t.Parallel()

	tool := NewLsTool("/no/such/dir")
	res := tool.Execute(context.Background(), map[string]interface{}{})

	if res.Success || res.ErrorKind() != ErrKindValidation {
		t.Errorf("result = %+v", res)
	}
}
