package tools

import "time"

// Error kinds carried in ExecutionResult metadata under "error_type". No
// invocation path raises past the subsystem boundary; these are how failures
// stay machine-readable.
const (
	ErrKindValidation            = "ValidationError"
	ErrKindSanitizationRejected  = "SanitizationRejected"
	ErrKindConfirmationDenied    = "ConfirmationDenied"
	ErrKindTimeout               = "TimeoutError"
	ErrKindResourceLimitExceeded = "ResourceLimitExceeded"
	ErrKindPermission            = "PermissionError"
	ErrKindInternal              = "InternalError"
)

// Metadata keys used across the subsystem.
const (
	MetaErrorType            = "error_type"
	MetaExecutionTime        = "execution_time"
	MetaTruncated            = "truncated"
	MetaExitStatus           = "exit_status"
	MetaRequiresConfirmation = "requires_confirmation"
	MetaCommand              = "command"
	MetaReason               = "reason"
	MetaWorkingDir           = "working_dir"
	MetaPID                  = "pid"
)

// ExecutionResult is the standardized outcome contract: the only value ever
// returned across the subsystem boundary, for every tool kind and every
// failure mode alike.
type ExecutionResult struct {
	Success  bool                   `json:"success"`
	Output   string                 `json:"output"`
	Error    string                 `json:"error,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Succeed builds a successful result.
func Succeed(output string, metadata map[string]interface{}) *ExecutionResult {
	return &ExecutionResult{
		Success:  true,
		Output:   output,
		Metadata: metadata,
	}
}

// Fail builds a failed result carrying a machine-readable error kind.
func Fail(kind, message string, metadata map[string]interface{}) *ExecutionResult {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	metadata[MetaErrorType] = kind
	return &ExecutionResult{
		Success:  false,
		Error:    message,
		Metadata: metadata,
	}
}

// WithDuration records the execution time in seconds, matching the wire
// schema's fractional-seconds convention.
func (r *ExecutionResult) WithDuration(d time.Duration) *ExecutionResult {
	if r.Metadata == nil {
		r.Metadata = map[string]interface{}{}
	}
	r.Metadata[MetaExecutionTime] = d.Seconds()
	return r
}

// ErrorKind returns the machine-readable error kind, or "" for successes.
func (r *ExecutionResult) ErrorKind() string {
	if r.Metadata == nil {
		return ""
	}
	kind, _ := r.Metadata[MetaErrorType].(string)
	return kind
}
