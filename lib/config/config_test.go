// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault_Validates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config does not validate: %v", err)
	}
}

func TestLoadFile_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
listen:
  websocket_port: 9100
  http_port: 9101
  http_enabled: true
call_timeout_seconds: 45
log:
  level: debug
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Listen.WebSocketPort != 9100 {
		t.Errorf("websocket_port = %d, want 9100", cfg.Listen.WebSocketPort)
	}
	if !cfg.Listen.HTTPEnabled {
		t.Error("http_enabled not applied")
	}
	if cfg.CallTimeoutSeconds != 45 {
		t.Errorf("call_timeout_seconds = %d, want 45", cfg.CallTimeoutSeconds)
	}
	// Untouched fields keep their defaults.
	if !cfg.Geometry.UseMaskBoundsForClippedGroups {
		t.Error("geometry default lost during merge")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config does not validate: %v", err)
	}
}

func TestValidate_RejectsPortCollision(t *testing.T) {
	cfg := Default()
	cfg.Listen.HTTPEnabled = true
	cfg.Listen.HTTPPort = cfg.Listen.WebSocketPort

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate accepted identical websocket and http ports")
	}
	if !strings.Contains(err.Error(), "must differ") {
		t.Errorf("error does not name the collision: %v", err)
	}
}

func TestValidate_RejectsOutOfRangeValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"privileged port", func(c *Config) { c.Listen.WebSocketPort = 80 }, "1024..65535"},
		{"zero timeout", func(c *Config) { c.CallTimeoutSeconds = 0 }, "1..300"},
		{"huge timeout", func(c *Config) { c.CallTimeoutSeconds = 301 }, "1..300"},
		{"bad level", func(c *Config) { c.Log.Level = "verbose" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate accepted an invalid config")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestLoad_UnsetEnvUsesDefaults(t *testing.T) {
	t.Setenv("EASEL_CONFIG", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load with unset EASEL_CONFIG: %v", err)
	}
	if cfg.Listen.WebSocketPort != 8081 {
		t.Errorf("websocket_port = %d, want default 8081", cfg.Listen.WebSocketPort)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "easel.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing config fixture: %v", err)
	}
	return path
}
