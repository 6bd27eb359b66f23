package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Marker.Type != "Name" || cfg.Marker.Method != "Of" || cfg.Marker.Reference != "Name.Of" {
		t.Errorf("unexpected marker defaults: %+v", cfg.Marker)
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
marker:
  type: Acme.Names
  method: Nameof
log:
  format: json
report: weave.db
`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cfg.Marker.Type != "Acme.Names" || cfg.Marker.Method != "Nameof" {
		t.Errorf("marker not parsed: %+v", cfg.Marker)
	}
	if cfg.Marker.Reference != DefaultMarkerReference {
		t.Errorf("unset reference should keep default, got %q", cfg.Marker.Reference)
	}
	if cfg.Log.Format != "json" || cfg.Log.Level != DefaultLogLevel {
		t.Errorf("log config wrong: %+v", cfg.Log)
	}
	if cfg.Report != "weave.db" {
		t.Errorf("report = %q", cfg.Report)
	}
}

func TestLoadAppliesEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultConfigFile)
	if err := os.WriteFile(path, []byte("marker:\n  method: From\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvMarkerReference, "Acme.Name")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Marker.Method != "From" {
		t.Errorf("file value lost: %+v", cfg.Marker)
	}
	if cfg.Log.Level != "debug" || cfg.Marker.Reference != "Acme.Name" {
		t.Errorf("environment not applied: %+v", cfg)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no type", func(c *Config) { c.Marker.Type = " " }, "marker.type"},
		{"no method", func(c *Config) { c.Marker.Method = "" }, "marker.method"},
		{"no reference", func(c *Config) { c.Marker.Reference = "" }, "marker.reference"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %v should mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
