package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.Model.DefaultThreshold != 0.30 {
		t.Errorf("default threshold = %v, want 0.30", cfg.Model.DefaultThreshold)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port = %d, want 8080", cfg.Server.Port)
	}
}

func TestLoadConfigMergesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9090
model:
  default_threshold: 0.4
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Model.DefaultThreshold != 0.4 {
		t.Errorf("threshold = %v, want 0.4", cfg.Model.DefaultThreshold)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Logging.Level)
	}
	// Untouched fields keep their defaults.
	if cfg.Model.ModelFile != "model_best.json" {
		t.Errorf("model file = %q, want default", cfg.Model.ModelFile)
	}
}

func TestLoadConfigKeepsCORSDefaultWhenUnset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9090
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !cfg.Server.EnableCORS {
		t.Error("file without enable_cors must keep the default true")
	}
}

func TestLoadConfigDisablesCORSExplicitly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  enable_cors: false
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.EnableCORS {
		t.Error("enable_cors: false in the file must win over the default")
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("CTRCD_PORT", "7001")
	t.Setenv("CTRCD_THRESHOLD", "0.25")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.Port != 7001 {
		t.Errorf("port = %d, want 7001", cfg.Server.Port)
	}
	if cfg.Model.DefaultThreshold != 0.25 {
		t.Errorf("threshold = %v, want 0.25", cfg.Model.DefaultThreshold)
	}
}

func TestConfigValidation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Port = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative port")
	}

	cfg = DefaultConfig()
	cfg.Model.DefaultThreshold = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for threshold outside (0,1)")
	}

	cfg = DefaultConfig()
	cfg.Logging.Level = "loud"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown log level")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/no/such/config.yaml"); err == nil {
		t.Error("expected error for missing config file")
	}
}
