package tools

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/haasonsaas/ocode/internal/config"
	"github.com/haasonsaas/ocode/internal/logger"
	"github.com/haasonsaas/ocode/internal/process"
)

// ToolNameShell is the registry name of the shell tool.
const ToolNameShell = "shell"

// ShellTool executes one shell command under a fresh process supervisor.
// Command screening (sanitizer, confirmation gate) happens in the
// orchestrator before dispatch reaches this tool.
type ShellTool struct {
	workingDir string
	defaults   config.ExecutionConfig
}

// NewShellTool creates the shell tool with execution defaults from config.
func NewShellTool(workingDir string, defaults config.ExecutionConfig) *ShellTool {
	return &ShellTool{workingDir: workingDir, defaults: defaults}
}

func (t *ShellTool) Name() string { return ToolNameShell }

func (t *ShellTool) Description() string {
	return "Execute a shell command with timeout, output cap and resource limits."
}

// CommandFromParams implements CommandTool.
func (t *ShellTool) CommandFromParams(params map[string]interface{}) (string, bool) {
	command := StringParam(params, "command", "")
	return command, command != ""
}

func (t *ShellTool) Execute(ctx context.Context, params map[string]interface{}) *ExecutionResult {
	command := StringParam(params, "command", "")
	if command == "" {
		return Fail(ErrKindValidation, "command is required", nil)
	}

	workingDir := StringParam(params, "working_dir", t.workingDir)
	if workingDir != "" {
		if info, err := os.Stat(workingDir); err != nil || !info.IsDir() {
			return Fail(ErrKindValidation,
				fmt.Sprintf("working directory does not exist: %s", workingDir), nil)
		}
	}

	opts := process.Options{
		Command:        command,
		WorkingDir:     workingDir,
		Stdin:          StringParam(params, "input_data", ""),
		Timeout:        secondsToDuration(FloatParam(params, "timeout", float64(t.defaults.DefaultTimeoutSeconds))),
		KillTimeout:    secondsToDuration(FloatParam(params, "kill_timeout", float64(t.defaults.KillTimeoutSeconds))),
		MaxOutputBytes: outputSizeBytes(params, t.defaults.MaxOutputBytes),
		Limits: process.Limits{
			CPUSeconds:  IntParam(params, "cpu_limit", t.defaults.CPULimitSeconds),
			MemoryBytes: int64(IntParam(params, "memory_limit", int(t.defaults.MemoryLimitBytes))),
		},
	}

	if env := envFromParams(params); env != nil {
		opts.Env = env
	}

	logger.Debug("shell: command=%q working_dir=%s timeout=%s", command, workingDir, opts.Timeout)

	supervisor := process.NewSupervisor(opts)
	res := supervisor.Run(ctx)

	return shellResult(command, workingDir, opts, res)
}

// shellResult normalizes a supervisor outcome into the uniform contract.
func shellResult(command, workingDir string, opts process.Options, res process.Result) *ExecutionResult {
	metadata := map[string]interface{}{
		MetaCommand:       command,
		MetaWorkingDir:    workingDir,
		MetaExitStatus:    res.ExitCode,
		MetaTruncated:     res.Truncated,
		MetaExecutionTime: res.Duration.Seconds(),
	}
	if res.PID != 0 {
		metadata[MetaPID] = res.PID
	}

	switch {
	case res.TimedOut:
		metadata[MetaErrorType] = ErrKindTimeout
		return &ExecutionResult{
			Success:  false,
			Output:   combinedOutput(res),
			Error:    fmt.Sprintf("command timed out after %s", opts.Timeout),
			Metadata: metadata,
		}

	case res.Canceled:
		metadata[MetaErrorType] = ErrKindTimeout
		metadata["canceled"] = true
		return &ExecutionResult{
			Success:  false,
			Output:   combinedOutput(res),
			Error:    "invocation canceled",
			Metadata: metadata,
		}

	case res.Err != nil:
		kind := ErrKindInternal
		if os.IsPermission(res.Err) {
			kind = ErrKindPermission
		}
		metadata[MetaErrorType] = kind
		return &ExecutionResult{
			Success:  false,
			Error:    fmt.Sprintf("failed to run command: %v", res.Err),
			Metadata: metadata,
		}

	case res.ExitCode == -1 && (opts.Limits.CPUSeconds > 0 || opts.Limits.MemoryBytes > 0):
		// Killed by a signal with limits armed: the observable shape of a
		// blown rlimit.
		metadata[MetaErrorType] = ErrKindResourceLimitExceeded
		return &ExecutionResult{
			Success:  false,
			Output:   combinedOutput(res),
			Error:    "process exceeded its resource limits",
			Metadata: metadata,
		}

	case res.ExitCode != 0:
		errMsg := res.Stderr
		if errMsg == "" {
			errMsg = fmt.Sprintf("command exited with status %d", res.ExitCode)
		}
		return &ExecutionResult{
			Success:  false,
			Output:   res.Stdout,
			Error:    errMsg,
			Metadata: metadata,
		}
	}

	return &ExecutionResult{
		Success:  true,
		Output:   combinedOutput(res),
		Metadata: metadata,
	}
}

func combinedOutput(res process.Result) string {
	if res.Stderr == "" {
		return res.Stdout
	}
	if res.Stdout == "" {
		return res.Stderr
	}
	return res.Stdout + "\nSTDERR:\n" + res.Stderr
}

// secondsToDuration converts a fractional-seconds value into a Duration
// without losing the sub-second part.
func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

// outputSizeBytes reads max_output_size, which callers may pass either as
// raw bytes or as fractional megabytes (values below 16 are MB, so 0.1
// means 100 KB, matching the original tooling's convention).
func outputSizeBytes(params map[string]interface{}, defaultBytes int) int {
	v := FloatParam(params, "max_output_size", 0)
	if v <= 0 {
		return defaultBytes
	}
	if v < 16 {
		return int(v * float64(1<<20))
	}
	return int(v)
}

func envFromParams(params map[string]interface{}) []string {
	raw, ok := params["env_vars"].(map[string]interface{})
	if !ok || len(raw) == 0 {
		return nil
	}
	env := os.Environ()
	for key, value := range raw {
		env = append(env, fmt.Sprintf("%s=%v", key, value))
	}
	return env
}
