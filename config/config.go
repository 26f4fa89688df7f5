// Package config loads server settings from CATBUTLER_* environment
// variables and the optional TOML catalog file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

// Prefix is prepended to every environment variable name.
const Prefix = "CATBUTLER"

// Store backends.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config holds every server setting.
type Config struct {
	// --- HTTP ---
	HTTPPort          int    `envconfig:"HTTP_PORT" default:"8080"`
	AllowedOriginsRaw string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:8080"`

	// --- Storage ---
	Store       string `envconfig:"STORE" default:"sqlite"`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"catbutler.db"`
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// --- Logging ---
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	// --- Rewards ---
	// Daily-login boundaries are computed in this zone.
	Timezone    string `envconfig:"TIMEZONE" default:"UTC"`
	CatalogPath string `envconfig:"CATALOG_PATH"`

	// --- Sessions ---
	SessionIdleTimeout   time.Duration `envconfig:"SESSION_IDLE_TIMEOUT" default:"30m"`
	SessionSweepSchedule string        `envconfig:"SESSION_SWEEP_SCHEDULE" default:"@every 1m"`

	// --- Demo ---
	// EnableScenarios mounts routes that wipe and replay an account.
	EnableScenarios bool `envconfig:"ENABLE_SCENARIOS" default:"false"`
}

// Load reads the environment and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("HTTP_PORT must be 1-65535, got %d", c.HTTPPort)
	}
	switch c.Store {
	case StoreMemory:
	case StoreSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required with STORE=sqlite")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required with STORE=postgres")
		}
	default:
		return fmt.Errorf("STORE must be memory, sqlite or postgres, got %q", c.Store)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE: %w", err)
	}
	if c.SessionIdleTimeout <= 0 {
		return fmt.Errorf("SESSION_IDLE_TIMEOUT must be > 0")
	}
	if c.SessionSweepSchedule == "" {
		return fmt.Errorf("SESSION_SWEEP_SCHEDULE is required")
	}
	for _, o := range c.AllowedOrigins() {
		if o == "*" {
			return fmt.Errorf("ALLOWED_ORIGINS cannot be \"*\": the API allows credentials")
		}
	}
	return nil
}

// Location returns the configured time zone. Validate has already checked
// it, so a failure here falls back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// AllowedOrigins splits ALLOWED_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOriginsRaw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// ConfigureLogging applies level and formatter to the standard logrus
// logger.
func (c *Config) ConfigureLogging() {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetOutput(os.Stderr)
	if c.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
