// Package config loads the trace layer configuration from config/traced.yaml
// with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/PolkaTrace/trace_layer/internal/app/latency"
	"github.com/PolkaTrace/trace_layer/internal/app/services/wallet"
)

// Config is the full runtime configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	CORS      CORSConfig      `yaml:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Latency   latency.Profile `yaml:"latency"`
	Simulator SimulatorConfig `yaml:"simulator"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig selects log level and format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// CORSConfig lists origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// RateLimitConfig throttles API requests per client address.
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// LedgerConfig sets the admin binding and sample data behavior.
type LedgerConfig struct {
	AdminAddress string `yaml:"admin_address"`
	Seed         bool   `yaml:"seed"`
	AuditSize    int    `yaml:"audit_size"`
}

// SimulatorConfig drives the built-in traffic generator.
type SimulatorConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 50,
			Burst:             100,
		},
		Ledger: LedgerConfig{
			AdminAddress: wallet.AliceAddress,
			Seed:         true,
			AuditSize:    1000,
		},
		Latency: latency.Default(),
		Simulator: SimulatorConfig{
			Enabled:  false,
			Interval: 5 * time.Second,
		},
	}
}

// Load reads config/traced.yaml relative to the working directory.
func Load() (*Config, error) {
	return LoadFromPath(filepath.Join("config", "traced.yaml"))
}

// LoadFromPath reads the configuration from a specific file. Missing keys
// keep their defaults; environment variables override last.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads the configuration or falls back to defaults with
// environment overrides when the file is absent.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		cfg = Default()
		cfg.applyEnv()
	}
	return cfg
}

// Validate checks the invariants a running server depends on.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server: port %d out of range", c.Server.Port)
	}
	if c.Ledger.AdminAddress == "" {
		return fmt.Errorf("ledger: admin_address is required")
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("rate_limit: requests_per_second must be positive")
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TRACED_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("TRACED_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("TRACED_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("TRACED_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("TRACED_ADMIN_ADDRESS"); v != "" {
		c.Ledger.AdminAddress = v
	}
	if v := os.Getenv("TRACED_SEED"); v != "" {
		c.Ledger.Seed = v == "true"
	}
	if v := os.Getenv("TRACED_SIMULATOR"); v != "" {
		c.Simulator.Enabled = v == "true"
	}
	if v := os.Getenv("TRACED_FAST_MODE"); v == "true" {
		c.Latency = latency.None()
	}
}
