package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration.
type Config struct {
	GeminiAPIKey   string        `env:"GEMINI_API_KEY"`
	Model          string        `env:"SANDBOX_MODEL"           envDefault:"gemini-2.5-flash"`
	ScenarioDir    string        `env:"SANDBOX_SCENARIO_DIR"`
	RequestTimeout time.Duration `env:"SANDBOX_REQUEST_TIMEOUT" envDefault:"20s"`
	LogLevel       string        `env:"SANDBOX_LOG_LEVEL"       envDefault:"info"`
	LogFile        string        `env:"SANDBOX_LOG_FILE"        envDefault:"sandbox.log"`
	// Offline plays without the language model; every stakeholder and
	// assessment call falls back to canned answers.
	Offline bool `env:"SANDBOX_OFFLINE"`
}

// LoadConfig loads the configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.GeminiAPIKey == "" && !c.Offline {
		return fmt.Errorf("GEMINI_API_KEY environment variable is not set (set SANDBOX_OFFLINE=true to play without it)")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("SANDBOX_REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	l, _ := parseLevel(c.LogLevel)
	return l
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("SANDBOX_LOG_LEVEL %q is not one of debug, info, warn, error", s)
}
