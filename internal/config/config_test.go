package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "screenshot.yaml"))
	if err != nil {
		t.Fatalf("missing config file must not fail: %v", err)
	}
	if cfg.OutputDir != os.TempDir() {
		t.Fatalf("output dir got %q want temp dir", cfg.OutputDir)
	}
	if cfg.StateFile != ".screenshot-auth.json" {
		t.Fatalf("state file got %q", cfg.StateFile)
	}
	if cfg.ViewportWidth != 1280 || cfg.ViewportHeight != 900 {
		t.Fatalf("viewport got %dx%d", cfg.ViewportWidth, cfg.ViewportHeight)
	}
	if cfg.LoginTimeoutSeconds != 300 || cfg.PollIntervalMillis != 500 {
		t.Fatalf("login wait got %d/%d", cfg.LoginTimeoutSeconds, cfg.PollIntervalMillis)
	}
	if cfg.BaseURL != "" {
		t.Fatalf("base URL should default empty (resolved by the CLI), got %q", cfg.BaseURL)
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "screenshot.yaml")
	yml := `
base_url: "https://localhost:8443"
output_dir: "/tmp/shots"
viewport_width: 1440
log_level: debug
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BaseURL != "https://localhost:8443" {
		t.Fatalf("base URL got %q", cfg.BaseURL)
	}
	if cfg.OutputDir != "/tmp/shots" {
		t.Fatalf("output dir got %q", cfg.OutputDir)
	}
	if cfg.ViewportWidth != 1440 {
		t.Fatalf("viewport width got %d", cfg.ViewportWidth)
	}
	// untouched keys keep their defaults
	if cfg.ViewportHeight != 900 || cfg.NavTimeoutSeconds != 30 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "screenshot.yaml")
	if err := os.WriteFile(path, []byte("base_url: [unclosed"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("malformed yaml must fail")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "screenshot.yaml")
	if err := os.WriteFile(path, []byte("viewport_width: -1\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("negative viewport must fail")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SCREENSHOT_BASE_URL", "http://localhost:9999")
	t.Setenv("SCREENSHOT_OUTPUT_DIR", "/tmp/env-shots")

	cfg, err := Load(filepath.Join(t.TempDir(), "screenshot.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BaseURL != "http://localhost:9999" {
		t.Fatalf("env base URL got %q", cfg.BaseURL)
	}
	if cfg.OutputDir != "/tmp/env-shots" {
		t.Fatalf("env output dir got %q", cfg.OutputDir)
	}
}
