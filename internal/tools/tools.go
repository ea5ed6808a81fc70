// Package tools defines the tool capability interface, the registry that
// resolves tool names to implementations, and the uniform ExecutionResult
// contract every invocation produces.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// Tool is the capability interface every registered operation implements.
// The set of tools is closed at startup; dispatch goes through an explicit
// name→implementation mapping, never runtime probing.
type Tool interface {
	Name() string
	Description() string
	Execute(ctx context.Context, params map[string]interface{}) *ExecutionResult
}

// CommandTool marks process-backed tools. The orchestrator screens the
// extracted command through the sanitizer and the confirmation gate before
// dispatch; tools without a command dispatch directly.
type CommandTool interface {
	Tool
	// CommandFromParams extracts the raw command string from the request
	// arguments. ok is false when the arguments carry no command (the
	// dispatch then fails validation before anything runs).
	CommandFromParams(params map[string]interface{}) (command string, ok bool)
}

// Registry maps tool names to implementations. It is populated once at
// startup and read-only afterwards.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Later registrations with the same name win, which
// lets a host application override a built-in.
func (r *Registry) Register(tool Tool) {
	r.tools[tool.Name()] = tool
}

// Get resolves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	tool, ok := r.tools[name]
	return tool, ok
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute dispatches a call to the named tool, normalizing the unknown-tool
// and nil-result cases into the uniform contract.
func (r *Registry) Execute(ctx context.Context, name string, params map[string]interface{}) *ExecutionResult {
	tool, ok := r.tools[name]
	if !ok {
		return Fail(ErrKindValidation, fmt.Sprintf("tool not found: %s", name), nil)
	}

	result := tool.Execute(ctx, params)
	if result == nil {
		return Fail(ErrKindInternal, fmt.Sprintf("tool %s returned nil result", name), nil)
	}
	return result
}

// Parameter extraction helpers. Arguments arrive as decoded JSON, so numbers
// are float64 unless the decoder used json.Number.

// StringParam returns the string value for key, or defaultVal.
func StringParam(params map[string]interface{}, key string, defaultVal string) string {
	if val, ok := params[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return defaultVal
}

// IntParam returns the integer value for key, or defaultVal.
func IntParam(params map[string]interface{}, key string, defaultVal int) int {
	if val, ok := params[key]; ok {
		switch v := val.(type) {
		case int:
			return v
		case float64:
			return int(v)
		case json.Number:
			if i, err := v.Int64(); err == nil {
				return int(i)
			}
		}
	}
	return defaultVal
}

// FloatParam returns the float value for key, or defaultVal.
func FloatParam(params map[string]interface{}, key string, defaultVal float64) float64 {
	if val, ok := params[key]; ok {
		switch v := val.(type) {
		case float64:
			return v
		case int:
			return float64(v)
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return f
			}
		}
	}
	return defaultVal
}

// BoolParam returns the bool value for key, or defaultVal.
func BoolParam(params map[string]interface{}, key string, defaultVal bool) bool {
	if val, ok := params[key]; ok {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return defaultVal
}
