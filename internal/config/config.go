package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ExecutionConfig holds defaults for tool execution and process supervision.
type ExecutionConfig struct {
	// MaxConcurrent caps how many tool invocations run at the same time.
	MaxConcurrent int `json:"max_concurrent"`
	// DefaultTimeoutSeconds applies when a request carries no timeout.
	DefaultTimeoutSeconds int `json:"default_timeout_seconds"`
	// KillTimeoutSeconds is the grace window between SIGTERM and SIGKILL.
	KillTimeoutSeconds int `json:"kill_timeout_seconds"`
	// MaxOutputBytes caps captured stdout/stderr per invocation.
	MaxOutputBytes int `json:"max_output_bytes"`
	// CPULimitSeconds and MemoryLimitBytes are best-effort rlimits applied
	// to spawned processes where the platform supports it. Zero disables.
	CPULimitSeconds  int   `json:"cpu_limit_seconds"`
	MemoryLimitBytes int64 `json:"memory_limit_bytes"`
}

// Config is the top-level ocode configuration, stored as JSON.
type Config struct {
	LogLevel   string `json:"log_level"`
	LogPath    string `json:"log_path"`
	WorkingDir string `json:"working_dir"`

	Execution ExecutionConfig `json:"execution"`

	// ConfirmTimeoutSeconds bounds how long a confirmation round trip may
	// stay pending. Zero means wait indefinitely; an unanswered request
	// after the timeout resolves to denial.
	ConfirmTimeoutSeconds int `json:"confirm_timeout_seconds"`
}

func defaultConfigDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".ocode")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(defaultConfigDir(), "config.json")
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:   "info",
		LogPath:    filepath.Join(defaultConfigDir(), "ocode.log"),
		WorkingDir: ".",
		Execution: ExecutionConfig{
			MaxConcurrent:         5,
			DefaultTimeoutSeconds: 30,
			KillTimeoutSeconds:    5,
			MaxOutputBytes:        1 << 20,
		},
	}
}

// Load reads the config file at path, falling back to defaults for missing
// fields. A missing file is not an error.
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			config.applyEnv()
			return config, nil
		}
		return nil, err
	}

	// Unmarshal into default config (overrides only provided fields)
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.WorkingDir == "" {
		config.WorkingDir = "."
	}
	if config.Execution.MaxConcurrent <= 0 {
		config.Execution.MaxConcurrent = 5
	}
	if config.Execution.DefaultTimeoutSeconds <= 0 {
		config.Execution.DefaultTimeoutSeconds = 30
	}
	if config.Execution.KillTimeoutSeconds <= 0 {
		config.Execution.KillTimeoutSeconds = 5
	}
	if config.Execution.MaxOutputBytes <= 0 {
		config.Execution.MaxOutputBytes = 1 << 20
	}

	config.applyEnv()
	return config, nil
}

func (c *Config) applyEnv() {
	if level := os.Getenv("OCODE_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
	if path := os.Getenv("OCODE_LOG_PATH"); path != "" {
		c.LogPath = path
	}
}

// Save writes the config as indented JSON, creating the directory if needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
