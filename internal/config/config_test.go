package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(APIKeyEnv, "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Resolution.WindowDays != 30 {
		t.Errorf("WindowDays = %d, want 30", cfg.Resolution.WindowDays)
	}
	if cfg.Resolution.ApproveThreshold != 0.60 {
		t.Errorf("ApproveThreshold = %v, want 0.60", cfg.Resolution.ApproveThreshold)
	}
	if cfg.Policy.TopN != 10 {
		t.Errorf("TopN = %d, want 10", cfg.Policy.TopN)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Setenv(APIKeyEnv, "")

	dir := t.TempDir()
	path := filepath.Join(dir, "redress.yaml")
	data := []byte("resolution:\n  window_days: 14\ncapability:\n  api_key: from-file\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Resolution.WindowDays != 14 {
		t.Errorf("WindowDays = %d, want 14", cfg.Resolution.WindowDays)
	}
	// Untouched sections keep their defaults.
	if cfg.Resolution.LowConfidenceFloor != 0.30 {
		t.Errorf("LowConfidenceFloor = %v, want 0.30", cfg.Resolution.LowConfidenceFloor)
	}
	if cfg.Capability.APIKey != "from-file" {
		t.Errorf("APIKey = %q, want from-file", cfg.Capability.APIKey)
	}
}

func TestLoad_EnvKeyFallback(t *testing.T) {
	t.Setenv(APIKeyEnv, "from-env")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Capability.APIKey != "from-env" {
		t.Errorf("APIKey = %q, want from-env", cfg.Capability.APIKey)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
