// Package daemon holds the long-running server pieces: configuration
// and the scheduled cycle sweep.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the daemon configuration, loaded from a TOML file.
type Config struct {
	API     APIConfig     `toml:"api"`
	DB      DBConfig      `toml:"db"`
	Auth    AuthConfig    `toml:"auth"`
	Metrics MetricsConfig `toml:"metrics"`
	Cycles  CyclesConfig  `toml:"cycles"`
}

// APIConfig configures the HTTP listener.
type APIConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns the host:port listen address.
func (c APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DBConfig configures the sqlite database.
type DBConfig struct {
	Path string `toml:"path"`
}

// AuthConfig configures bearer-token verification.
type AuthConfig struct {
	// Secret is the HMAC key shared with the identity provider. Required
	// for serving; there is no default.
	Secret string `toml:"secret"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

// CyclesConfig configures the automatic weekly reset sweep.
type CyclesConfig struct {
	AutoReset bool `toml:"auto_reset"`

	// SweepSchedule is a cron expression for how often overdue cycles are
	// checked. The cycle length itself comes from each class policy.
	SweepSchedule string `toml:"sweep_schedule"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8460,
		},
		DB: DBConfig{
			Path: defaultDBPath(),
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Cycles: CyclesConfig{
			AutoReset:     true,
			SweepSchedule: "@hourly",
		},
	}
}

// Load reads the config file at path, falling back to defaults for a
// missing file. Fields absent from the file keep their defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the loaded config is serviceable.
func (c Config) Validate() error {
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port out of range: %d", c.API.Port)
	}
	if c.Auth.Secret == "" {
		return fmt.Errorf("auth.secret is required")
	}
	if c.DB.Path == "" {
		return fmt.Errorf("db.path is required")
	}
	return nil
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "classbank.db"
	}
	return filepath.Join(home, ".classbank", "classbank.db")
}
