package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/yaml.v3"
)

// Config holds everything the tool reads from screenshot.yaml. The file is
// optional so the tool works with zero setup; flags still override the
// loaded values.
type Config struct {
	BaseURL             string `yaml:"base_url"`
	OutputDir           string `yaml:"output_dir"`
	StateFile           string `yaml:"state_file"`
	ViewportWidth       int64  `yaml:"viewport_width"`
	ViewportHeight      int64  `yaml:"viewport_height"`
	NavTimeoutSeconds   int    `yaml:"nav_timeout_seconds"`
	LoginTimeoutSeconds int    `yaml:"login_timeout_seconds"`
	PollIntervalMillis  int    `yaml:"poll_interval_millis"`
	ReviewPort          int    `yaml:"review_port"`
	LogLevel            string `yaml:"log_level"`
}

func defaults() *Config {
	return &Config{
		OutputDir:           os.TempDir(),
		StateFile:           ".screenshot-auth.json",
		ViewportWidth:       1280,
		ViewportHeight:      900,
		NavTimeoutSeconds:   30,
		LoginTimeoutSeconds: 300,
		PollIntervalMillis:  500,
		ReviewPort:          8386,
		LogLevel:            "info",
	}
}

// Load reads path if it exists and overlays it on the defaults, then applies
// SCREENSHOT_* environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := defaults()

	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// zero-setup run
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if cfg.ViewportWidth <= 0 || cfg.ViewportHeight <= 0 {
		return nil, errors.New("viewport dimensions must be positive")
	}
	if cfg.NavTimeoutSeconds <= 0 || cfg.LoginTimeoutSeconds <= 0 || cfg.PollIntervalMillis <= 0 {
		return nil, errors.New("timeouts and poll interval must be positive")
	}
	if cfg.ReviewPort <= 0 || cfg.ReviewPort > 65535 {
		return nil, errors.New("invalid review_port")
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = os.TempDir()
	}
	if cfg.StateFile == "" {
		return nil, errors.New("state_file must not be empty")
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SCREENSHOT_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("SCREENSHOT_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv("SCREENSHOT_STATE_FILE"); v != "" {
		cfg.StateFile = v
	}
	if v := os.Getenv("SCREENSHOT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

func (c *Config) NavTimeout() time.Duration {
	return time.Duration(c.NavTimeoutSeconds) * time.Second
}

func (c *Config) LoginTimeout() time.Duration {
	return time.Duration(c.LoginTimeoutSeconds) * time.Second
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMillis) * time.Millisecond
}

// NewLogger builds the tool's logger. Progress goes to stderr so stdout
// stays clean for the final count line.
func NewLogger(level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	h := tint.NewHandler(os.Stderr, &tint.Options{Level: lvl, TimeFormat: time.TimeOnly})
	return slog.New(h)
}
