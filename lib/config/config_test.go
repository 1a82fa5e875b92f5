// Copyright 2026 The Gecko Audio Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultValues(t *testing.T) {
	cfg := Default()

	if cfg.Control.ListenAddress != "[::]:9000" {
		t.Errorf("ListenAddress = %q, want %q", cfg.Control.ListenAddress, "[::]:9000")
	}
	if got := cfg.ConfSync.QuietPeriod.Std(); got != time.Second {
		t.Errorf("QuietPeriod = %v, want 1s", got)
	}
	if got := cfg.Dashboard.PollInterval.Std(); got != 2*time.Second {
		t.Errorf("PollInterval = %v, want 2s", got)
	}
	if cfg.Discovery.Service != "_geckoaudio._tcp" {
		t.Errorf("Discovery.Service = %q, want %q", cfg.Discovery.Service, "_geckoaudio._tcp")
	}
	if err := cfg.validate(); err != nil {
		t.Errorf("Default() does not validate: %v", err)
	}
}

func TestLoadFileOverridesAndKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geckoctl.yaml")
	content := `
control:
  listen_address: "127.0.0.1:9400"
  write_timeout: "5s"
confsync:
  quiet_period: "250ms"
log:
  format: "json"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.Control.ListenAddress != "127.0.0.1:9400" {
		t.Errorf("ListenAddress = %q, want overridden value", cfg.Control.ListenAddress)
	}
	if got := cfg.Control.WriteTimeout.Std(); got != 5*time.Second {
		t.Errorf("WriteTimeout = %v, want 5s", got)
	}
	if got := cfg.ConfSync.QuietPeriod.Std(); got != 250*time.Millisecond {
		t.Errorf("QuietPeriod = %v, want 250ms", got)
	}
	// Untouched fields keep defaults.
	if cfg.ConfSync.Dir != "./client_config" {
		t.Errorf("Dir = %q, want default", cfg.ConfSync.Dir)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want json", cfg.Log.Format)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want default info", cfg.Log.Level)
	}
}

func TestLoadFileRejectsBareNumberDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geckoctl.yaml")
	if err := os.WriteFile(path, []byte("confsync:\n  quiet_period: 5\n"), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	_, err := LoadFile(path)
	if err == nil {
		t.Fatal("LoadFile accepted a bare-number duration, want error")
	}
}

func TestLoadFileRejectsBadLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geckoctl.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: verbose\n"), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	_, err := LoadFile(path)
	if err == nil || !strings.Contains(err.Error(), "log.level") {
		t.Fatalf("LoadFile error = %v, want log.level validation error", err)
	}
}

func TestLoadWithoutEnvUsesDefaults(t *testing.T) {
	t.Setenv("GECKOCTL_CONFIG", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Control.ListenAddress != Default().Control.ListenAddress {
		t.Errorf("Load without env did not return defaults")
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	t.Setenv("GECKOCTL_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	if _, err := Load(); err == nil {
		t.Fatal("Load with missing file succeeded, want error")
	}
}
