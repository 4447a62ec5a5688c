// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the easel server.
//
// Configuration is loaded from a single YAML file specified by:
//   - EASEL_CONFIG environment variable, or
//   - --config flag passed to the binary
//
// Every field has a working default; the server runs with no config
// file at all. When a file is given it is the single source of truth —
// environment variables never override individual values.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the easel server configuration.
type Config struct {
	// Listen configures the network listeners.
	Listen ListenConfig `yaml:"listen"`

	// CallTimeoutSeconds is the default per-request deadline for
	// scripts shipped to the panel. Individual calls may override it.
	// Range 1..300.
	CallTimeoutSeconds int `yaml:"call_timeout_seconds"`

	// Libraries configures the script library resolver.
	Libraries LibrariesConfig `yaml:"libraries"`

	// Geometry configures bounds-reporting policy.
	Geometry GeometryConfig `yaml:"geometry"`

	// Log configures the stderr logger.
	Log LogConfig `yaml:"log"`
}

// ListenConfig configures the WebSocket bridge listener and the
// optional HTTP side channel. Both bind loopback only.
type ListenConfig struct {
	// WebSocketPort is where the Illustrator panel connects.
	// Default 8081.
	WebSocketPort int `yaml:"websocket_port"`

	// HTTPPort serves the /execute and /status side channel when
	// HTTPEnabled is set. Default 8080. Must differ from
	// WebSocketPort.
	HTTPPort int `yaml:"http_port"`

	// HTTPEnabled turns the side channel on. Default false: MCP over
	// stdio is the primary surface.
	HTTPEnabled bool `yaml:"http_enabled"`
}

// LibrariesConfig configures the script library resolver.
type LibrariesConfig struct {
	// Manifest is a path to a JSONC library manifest. Empty means the
	// manifest and script fragments embedded in the binary.
	Manifest string `yaml:"manifest"`
}

// GeometryConfig configures bounds reporting.
type GeometryConfig struct {
	// UseMaskBoundsForClippedGroups selects which bounds a clipping
	// group reports: the clipping path's geometric bounds (true) or
	// the full content bounds including masked-out area (false).
	UseMaskBoundsForClippedGroups bool `yaml:"use_mask_bounds_for_clipped_groups"`
}

// LogConfig configures the stderr logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Default info.
	Level string `yaml:"level"`

	// Format is one of auto, text, json. Default auto (text on a
	// terminal, JSON otherwise).
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is provided.
func Default() *Config {
	return &Config{
		Listen: ListenConfig{
			WebSocketPort: 8081,
			HTTPPort:      8080,
			HTTPEnabled:   false,
		},
		CallTimeoutSeconds: 30,
		Geometry: GeometryConfig{
			UseMaskBoundsForClippedGroups: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load loads configuration from the EASEL_CONFIG environment variable,
// falling back to defaults when it is unset.
func Load() (*Config, error) {
	path := os.Getenv("EASEL_CONFIG")
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path, merging over
// the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if err := validPort(c.Listen.WebSocketPort); err != nil {
		errs = append(errs, fmt.Errorf("listen.websocket_port: %w", err))
	}
	if c.Listen.HTTPEnabled {
		if err := validPort(c.Listen.HTTPPort); err != nil {
			errs = append(errs, fmt.Errorf("listen.http_port: %w", err))
		}
		if c.Listen.HTTPPort == c.Listen.WebSocketPort {
			errs = append(errs, fmt.Errorf(
				"listen.http_port and listen.websocket_port are both %d; they must differ",
				c.Listen.HTTPPort))
		}
	}

	if c.CallTimeoutSeconds < 1 || c.CallTimeoutSeconds > 300 {
		errs = append(errs, fmt.Errorf(
			"call_timeout_seconds must be in 1..300, got %d", c.CallTimeoutSeconds))
	}

	if c.Libraries.Manifest != "" {
		if _, err := os.Stat(c.Libraries.Manifest); err != nil {
			errs = append(errs, fmt.Errorf("libraries.manifest: %w", err))
		}
	}

	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not debug, info, warn, or error", c.Log.Level))
	}
	switch c.Log.Format {
	case "", "auto", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not auto, text, or json", c.Log.Format))
	}

	return errors.Join(errs...)
}

// validPort rejects ports outside the unprivileged range. The bridge
// never runs privileged, so anything below 1024 is a configuration
// mistake.
func validPort(port int) error {
	if port < 1024 || port > 65535 {
		return fmt.Errorf("port must be in 1024..65535, got %d", port)
	}
	return nil
}
