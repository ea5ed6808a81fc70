package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Execution.MaxConcurrent != 5 {
		t.Errorf("MaxConcurrent = %d, want 5", cfg.Execution.MaxConcurrent)
	}
	if cfg.Execution.DefaultTimeoutSeconds != 30 {
		t.Errorf("DefaultTimeoutSeconds = %d, want 30", cfg.Execution.DefaultTimeoutSeconds)
	}
	if cfg.Execution.MaxOutputBytes != 1<<20 {
		t.Errorf("MaxOutputBytes = %d, want %d", cfg.Execution.MaxOutputBytes, 1<<20)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"log_level": "debug", "execution": {"max_concurrent": 2}}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.Execution.MaxConcurrent != 2 {
		t.Errorf("MaxConcurrent = %d, want 2", cfg.Execution.MaxConcurrent)
	}
	// Untouched fields keep their defaults.
	if cfg.Execution.KillTimeoutSeconds != 5 {
		t.Errorf("KillTimeoutSeconds = %d, want 5", cfg.Execution.KillTimeoutSeconds)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed config")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg := DefaultConfig()
	cfg.Execution.MaxConcurrent = 8
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Execution.MaxConcurrent != 8 {
		t.Errorf("MaxConcurrent = %d, want 8", loaded.Execution.MaxConcurrent)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("OCODE_LOG_LEVEL", "error")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "error" {
		t.Errorf("LogLevel = %q, want error", cfg.LogLevel)
	}
}
