package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "buildcost/internal/errors"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Pricing.Region != "national" {
		t.Errorf("expected default region national, got %q", cfg.Pricing.Region)
	}
	if cfg.Storage.Prefix != "buildcost:" {
		t.Errorf("expected default prefix, got %q", cfg.Storage.Prefix)
	}
}

func TestLoadYAMLAndJSON(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
		region  string
	}{
		{
			name:    "json",
			file:    "config.json",
			content: `{"pricing":{"region":"west_coast","timeout":5000000000}}`,
			region:  "west_coast",
		},
		{
			name:    "yaml",
			file:    "config.yaml",
			content: "pricing:\n  region: midwest\n  timeout: 5s\n",
			region:  "midwest",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.Pricing.Region != tt.region {
				t.Errorf("expected region %q, got %q", tt.region, cfg.Pricing.Region)
			}
			if cfg.Pricing.Timeout != 5*time.Second {
				t.Errorf("expected timeout 5s, got %s", cfg.Pricing.Timeout)
			}
		})
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("BUILDCOST_REGION", "south")
	t.Setenv("BUILDCOST_LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Pricing.Region != "south" {
		t.Errorf("expected env region south, got %q", cfg.Pricing.Region)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected env log level debug, got %q", cfg.Logging.Level)
	}
}

func TestValidateRejectsEmptyPrefix(t *testing.T) {
	cfg := Default()
	cfg.Storage.Prefix = ""
	err := cfg.Validate()
	if !apperrors.IsType(err, apperrors.TypeConfig) {
		t.Fatalf("expected CONFIG_ERROR, got %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := Default()
	cfg.Pricing.Region = "northeast"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Pricing.Region != "northeast" {
		t.Errorf("expected northeast, got %q", loaded.Pricing.Region)
	}
}
