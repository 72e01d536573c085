// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every runtime knob for the server and the audit worker.
type Config struct {
	// HTTP server
	Port int `env:"PORT" envDefault:"8080"`

	// Database
	DBPath string `env:"DB_PATH" envDefault:"./data/tally.db"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Audit worker
	AuditInterval    time.Duration `env:"AUDIT_INTERVAL" envDefault:"1h"`
	AuditConcurrency int           `env:"AUDIT_CONCURRENCY" envDefault:"4"`
	AuditFix         bool          `env:"AUDIT_FIX" envDefault:"false"`
}

// Load reads an optional .env file and then parses the environment.
func Load() (*Config, error) {
	// Missing .env is fine; env vars win either way.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.AuditConcurrency < 1 {
		return nil, fmt.Errorf("AUDIT_CONCURRENCY must be at least 1, got %d", cfg.AuditConcurrency)
	}
	return cfg, nil
}
