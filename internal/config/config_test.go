package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/PolkaTrace/trace_layer/internal/app/services/wallet"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Ledger.AdminAddress != wallet.AliceAddress {
		t.Errorf("AdminAddress = %q, want Alice", cfg.Ledger.AdminAddress)
	}
	if cfg.Latency.Register != 2*time.Second {
		t.Errorf("Latency.Register = %v, want 2s", cfg.Latency.Register)
	}
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "traced.yaml")
	data := []byte(`
server:
  port: 9090
logging:
  level: debug
ledger:
  seed: false
simulator:
  enabled: true
  interval: 2s
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Ledger.Seed {
		t.Error("Seed = true, want false")
	}
	if !cfg.Simulator.Enabled || cfg.Simulator.Interval != 2*time.Second {
		t.Errorf("Simulator = %+v, want enabled with 2s interval", cfg.Simulator)
	}
	// Untouched keys keep their defaults.
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Host = %q, want default", cfg.Server.Host)
	}
}

func TestLoadFromPathInvalidPort(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "traced.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: -1\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadFromPath(path); err == nil {
		t.Fatal("expected validation error for negative port")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TRACED_PORT", "7070")
	t.Setenv("TRACED_ADMIN_ADDRESS", wallet.BobAddress)
	t.Setenv("TRACED_FAST_MODE", "true")

	cfg := LoadOrDefault()
	if cfg.Server.Port != 7070 {
		t.Errorf("Port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Ledger.AdminAddress != wallet.BobAddress {
		t.Errorf("AdminAddress = %q, want Bob", cfg.Ledger.AdminAddress)
	}
	if cfg.Latency.Register != 0 {
		t.Errorf("fast mode Latency.Register = %v, want 0", cfg.Latency.Register)
	}
}
