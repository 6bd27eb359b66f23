// Package config holds the weaver's configuration: built-in defaults, an
// optional nameof.yaml file, and environment overrides.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/xyproto/env/v2"
	"gopkg.in/yaml.v3"
)

// Config represents the top-level nameof.yaml configuration.
type Config struct {
	// Marker describes the method whose calls are replaced by name literals.
	Marker MarkerConfig `yaml:"marker"`

	// Log configures the structured logger.
	Log LogConfig `yaml:"log,omitempty"`

	// Report is the path of an SQLite database that records every weave run.
	// Empty disables reporting.
	Report string `yaml:"report,omitempty"`
}

// MarkerConfig identifies the marker method.
type MarkerConfig struct {
	// Type is the full name of the declaring type (e.g. "Name").
	Type string `yaml:"type"`

	// Method is the marker method name (e.g. "Of"). All overloads match.
	Method string `yaml:"method"`

	// Reference is the component that defines the marker. It is removed
	// from the module once no marker call remains.
	Reference string `yaml:"reference"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level,omitempty"`

	// Format is "text" or "json".
	Format string `yaml:"format,omitempty"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Marker: MarkerConfig{
			Type:      DefaultMarkerType,
			Method:    DefaultMarkerMethod,
			Reference: DefaultMarkerReference,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// Parse reads a nameof.yaml document on top of the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Load reads the config file at path, applies environment overrides and
// validates the result. An empty path yields the defaults (plus overrides).
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if cfg, err = Parse(data); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from NAMEOF_* environment variables
func (c *Config) ApplyEnv() {
	c.Marker.Type = env.Str(EnvMarkerType, c.Marker.Type)
	c.Marker.Method = env.Str(EnvMarkerMethod, c.Marker.Method)
	c.Marker.Reference = env.Str(EnvMarkerReference, c.Marker.Reference)
	c.Log.Level = env.Str(EnvLogLevel, c.Log.Level)
	c.Log.Format = env.Str(EnvLogFormat, c.Log.Format)
	c.Report = env.Str(EnvReport, c.Report)
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Marker.Type) == "" {
		return fmt.Errorf("marker.type is required")
	}
	if strings.TrimSpace(c.Marker.Method) == "" {
		return fmt.Errorf("marker.method is required")
	}
	if strings.TrimSpace(c.Marker.Reference) == "" {
		return fmt.Errorf("marker.reference is required")
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q (expected text or json)", c.Log.Format)
	}
	return nil
}
