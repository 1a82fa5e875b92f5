// Copyright 2026 The Gecko Audio Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML duration
// strings ("1s", "500ms"). Plain integers are rejected: a bare number
// in a config file is ambiguous between seconds and nanoseconds.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("duration must be a string like \"1s\": %w", err)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Config is the master configuration for the geckoctl server.
type Config struct {
	// Control configures the TCP control-channel listener.
	Control ControlConfig `yaml:"control"`

	// ConfSync configures the per-client configuration directory.
	ConfSync ConfSyncConfig `yaml:"confsync"`

	// Discovery configures DNS-SD announcement of the control port.
	Discovery DiscoveryConfig `yaml:"discovery"`

	// Dashboard configures the optional fleet TUI.
	Dashboard DashboardConfig `yaml:"dashboard"`

	// Log configures process logging.
	Log LogConfig `yaml:"log"`
}

// ControlConfig configures the control-channel listener.
type ControlConfig struct {
	// ListenAddress is the TCP address the control channel binds.
	// Default: "[::]:9000" (dual-stack on most systems).
	ListenAddress string `yaml:"listen_address"`

	// ReadIdleTimeout closes a connection that sends nothing for this
	// long. Zero disables the idle check; clients that only listen
	// for server pushes then hold their connection indefinitely.
	// Default: 0.
	ReadIdleTimeout Duration `yaml:"read_idle_timeout"`

	// WriteTimeout bounds each outbound message write so one stalled
	// peer cannot wedge the broadcaster. Default: 10s.
	WriteTimeout Duration `yaml:"write_timeout"`
}

// ConfSyncConfig configures configuration-file synchronization.
type ConfSyncConfig struct {
	// Dir is the directory holding one JSON file per client.
	// Default: "./client_config".
	Dir string `yaml:"dir"`

	// QuietPeriod is the debounce window for filesystem events: a
	// file's change is applied only after this long with no further
	// events on its path. Default: 1s.
	QuietPeriod Duration `yaml:"quiet_period"`
}

// DiscoveryConfig configures DNS-SD announcement.
type DiscoveryConfig struct {
	// Disable skips announcement entirely (headless test runs).
	Disable bool `yaml:"disable"`

	// Instance is the human-readable service instance name.
	// Default: "Gecko Audio Streaming".
	Instance string `yaml:"instance"`

	// Service is the DNS-SD service type. Default: "_geckoaudio._tcp".
	Service string `yaml:"service"`
}

// DashboardConfig configures the fleet TUI.
type DashboardConfig struct {
	// PollInterval is how often the dashboard re-reads the registry
	// snapshot. Default: 2s.
	PollInterval Duration `yaml:"poll_interval"`
}

// LogConfig configures process logging.
type LogConfig struct {
	// Level is one of "debug", "info", "warn", "error". Default: "info".
	Level string `yaml:"level"`

	// Format is "text" or "json". Default: "text".
	Format string `yaml:"format"`
}

// Default returns the development defaults. They are the base onto
// which a config file is merged; running with no file at all is
// supported and uses these values unchanged.
func Default() *Config {
	return &Config{
		Control: ControlConfig{
			ListenAddress:   "[::]:9000",
			ReadIdleTimeout: 0,
			WriteTimeout:    Duration(10 * time.Second),
		},
		ConfSync: ConfSyncConfig{
			Dir:         "./client_config",
			QuietPeriod: Duration(time.Second),
		},
		Discovery: DiscoveryConfig{
			Instance: "Gecko Audio Streaming",
			Service:  "_geckoaudio._tcp",
		},
		Dashboard: DashboardConfig{
			PollInterval: Duration(2 * time.Second),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from the file named by the GECKOCTL_CONFIG
// environment variable, or returns Default() when it is unset. There
// is no other search path; configuration comes from exactly one file
// or from the built-in defaults.
func Load() (*Config, error) {
	path := os.Getenv("GECKOCTL_CONFIG")
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path. Fields
// absent from the file keep their default values. Environment
// variables do not override file values.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Control.ListenAddress == "" {
		return fmt.Errorf("control.listen_address must not be empty")
	}
	if c.ConfSync.Dir == "" {
		return fmt.Errorf("confsync.dir must not be empty")
	}
	if c.ConfSync.QuietPeriod <= 0 {
		return fmt.Errorf("confsync.quiet_period must be positive, got %v", c.ConfSync.QuietPeriod.Std())
	}
	if c.Dashboard.PollInterval <= 0 {
		return fmt.Errorf("dashboard.poll_interval must be positive, got %v", c.Dashboard.PollInterval.Std())
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn, or error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}
