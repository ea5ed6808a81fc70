package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Registry names of the thin file tools. They carry no command string, so
// dispatch reaches them directly without sanitizer or gate involvement.
const (
	ToolNameReadFile  = "read_file"
	ToolNameWriteFile = "write_file"
	ToolNameLs        = "ls"
)

// ReadFileTool returns a file's contents.
type ReadFileTool struct {
	workingDir string
}

func NewReadFileTool(workingDir string) *ReadFileTool {
	return &ReadFileTool{workingDir: workingDir}
}

func (t *ReadFileTool) Name() string        { return ToolNameReadFile }
func (t *ReadFileTool) Description() string { return "Read the contents of a file." }

func (t *ReadFileTool) Execute(ctx context.Context, params map[string]interface{}) *ExecutionResult {
	path := StringParam(params, "path", "")
	if path == "" {
		return Fail(ErrKindValidation, "path is required", nil)
	}
	path = t.resolve(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsPermission(err) {
			return Fail(ErrKindPermission, err.Error(), nil)
		}
		return Fail(ErrKindValidation, fmt.Sprintf("failed to read file: %v", err), nil)
	}

	return Succeed(string(data), map[string]interface{}{"path": path, "size": len(data)})
}

func (t *ReadFileTool) resolve(path string) string {
	if filepath.IsAbs(path) || t.workingDir == "" {
		return path
	}
	return filepath.Join(t.workingDir, path)
}

// WriteFileTool creates or overwrites a file.
type WriteFileTool struct {
	workingDir string
}

func NewWriteFileTool(workingDir string) *WriteFileTool {
	return &WriteFileTool{workingDir: workingDir}
}

func (t *WriteFileTool) Name() string        { return ToolNameWriteFile }
func (t *WriteFileTool) Description() string { return "Write content to a file, creating it if needed." }

func (t *WriteFileTool) Execute(ctx context.Context, params map[string]interface{}) *ExecutionResult {
	path := StringParam(params, "path", "")
	if path == "" {
		return Fail(ErrKindValidation, "path is required", nil)
	}
	content, ok := params["content"].(string)
	if !ok {
		return Fail(ErrKindValidation, "content is required", nil)
	}

	if !filepath.IsAbs(path) && t.workingDir != "" {
		path = filepath.Join(t.workingDir, path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Fail(ErrKindInternal, fmt.Sprintf("failed to create directory: %v", err), nil)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		if os.IsPermission(err) {
			return Fail(ErrKindPermission, err.Error(), nil)
		}
		return Fail(ErrKindInternal, fmt.Sprintf("failed to write file: %v", err), nil)
	}

	return Succeed(fmt.Sprintf("wrote %d bytes to %s", len(content), path),
		map[string]interface{}{"path": path, "size": len(content)})
}

// LsTool lists directory contents.
type LsTool struct {
	workingDir string
}

func NewLsTool(workingDir string) *LsTool {
	return &LsTool{workingDir: workingDir}
}

func (t *LsTool) Name() string        { return ToolNameLs }
func (t *LsTool) Description() string { return "List directory contents." }

func (t *LsTool) Execute(ctx context.Context, params map[string]interface{}) *ExecutionResult {
	path := StringParam(params, "path", "")
	if path == "" {
		path = t.workingDir
	}
	if path == "" {
		path = "."
	}

	all := BoolParam(params, "all", false)

	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsPermission(err) {
			return Fail(ErrKindPermission, err.Error(), nil)
		}
		return Fail(ErrKindValidation, fmt.Sprintf("failed to list directory: %v", err), nil)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if !all && strings.HasPrefix(name, ".") {
			continue
		}
		if entry.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)

	return Succeed(strings.Join(names, "\n"),
		map[string]interface{}{"path": path, "count": len(names)})
}
