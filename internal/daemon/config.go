// Package daemon manages the readgarden runtime lifecycle and configuration.
package daemon

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/readgarden/readgarden/internal/app/progression"
)

// Config holds all daemon configuration.
type Config struct {
	API         APIConfig         `toml:"api"`
	Storage     StorageConfig     `toml:"storage"`
	Progression ProgressionConfig `toml:"progression"`
	Logging     LoggingConfig     `toml:"logging"`
	Telemetry   TelemetryConfig   `toml:"telemetry"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	RequestTimeout string `toml:"request_timeout"`
}

// StorageConfig controls where the database lives.
type StorageConfig struct {
	Dir string `toml:"dir"`
}

// ProgressionConfig tunes XP rates and the progress cache.
type ProgressionConfig struct {
	progression.XPTable
	CacheTTL            string `toml:"cache_ttl"`
	HealthCheckInterval string `toml:"health_check_interval"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // console or json
}

// TelemetryConfig controls metrics exposure.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host:           "127.0.0.1",
			Port:           7433,
			RequestTimeout: "30s",
		},
		Storage: StorageConfig{
			Dir: readgardenHome(),
		},
		Progression: ProgressionConfig{
			XPTable:             progression.DefaultXPTable(),
			CacheTTL:            progression.DefaultCacheTTL.String(),
			HealthCheckInterval: "5m",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig reads config from $READGARDEN_HOME/config.toml, falling back to
// defaults. A .env file in the working directory is loaded first so it can
// set READGARDEN_HOME.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return LoadConfigFile(filepath.Join(readgardenHome(), "config.toml"))
}

// LoadConfigFile reads config from path over the defaults. A missing file
// yields the defaults.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil // No config file yet
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	t := c.Progression.XPTable
	if t.MinuteRate < 0 || t.PageRate < 0 || t.LongSessionBonus < 0 || t.StreakBonus < 0 || t.BookCompletionXP < 0 {
		return fmt.Errorf("invalid config: progression rates must not be negative")
	}
	for name, v := range map[string]string{
		"api.request_timeout":               c.API.RequestTimeout,
		"progression.cache_ttl":             c.Progression.CacheTTL,
		"progression.health_check_interval": c.Progression.HealthCheckInterval,
	} {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid config: %s: %w", name, err)
		}
	}
	return nil
}

// SaveConfig writes the config to $READGARDEN_HOME/config.toml.
func SaveConfig(cfg Config) error {
	path := filepath.Join(readgardenHome(), "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// readgardenHome returns the readgarden data directory.
func readgardenHome() string {
	if env := os.Getenv("READGARDEN_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".readgarden")
}

// Home is exported for use by other packages.
func Home() string {
	return readgardenHome()
}

// parseDuration parses a duration string, returning a fallback on error.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
