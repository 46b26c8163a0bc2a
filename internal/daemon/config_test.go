package daemon

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.API.Port != 8460 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 8460)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled should be true by default")
	}
	if !cfg.Cycles.AutoReset {
		t.Error("Cycles.AutoReset should be true by default")
	}
	if cfg.Cycles.SweepSchedule != "@hourly" {
		t.Errorf("Cycles.SweepSchedule = %q, want %q", cfg.Cycles.SweepSchedule, "@hourly")
	}
	if cfg.DB.Path == "" {
		t.Error("DB.Path should have a default")
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.Port != DefaultConfig().API.Port {
		t.Errorf("API.Port = %d, want default", cfg.API.Port)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[api]
host = "0.0.0.0"
port = 9000

[auth]
secret = "classroom-key"

[cycles]
auto_reset = false
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.Host != "0.0.0.0" || cfg.API.Port != 9000 {
		t.Errorf("API = %+v", cfg.API)
	}
	if cfg.Auth.Secret != "classroom-key" {
		t.Errorf("Auth.Secret = %q", cfg.Auth.Secret)
	}
	if cfg.Cycles.AutoReset {
		t.Error("Cycles.AutoReset should be overridden to false")
	}
	// Fields absent from the file keep defaults.
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled should keep its default")
	}
	if cfg.API.Addr() != "0.0.0.0:9000" {
		t.Errorf("Addr() = %q", cfg.API.Addr())
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Error("config without auth secret should not validate")
	}

	cfg.Auth.Secret = "key"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	cfg.API.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero port should not validate")
	}
}
