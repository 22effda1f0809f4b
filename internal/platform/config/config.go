// Copyright (c) 2026 Costar. All rights reserved.

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the Costar API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Edge building policy. Billing caps bound how many credits per work
	// participate in pair generation; KeyCrewRoles is the crew allow-list.
	PerformerPerformerCap int      `env:"PERFORMER_PERFORMER_CAP" envDefault:"10"`
	PerformerDirectorCap  int      `env:"PERFORMER_DIRECTOR_CAP"  envDefault:"20"`
	KeyCrewRoles          []string `env:"KEY_CREW_ROLES,required"`

	// Path finding
	MaxPathDepth int           `env:"MAX_PATH_DEPTH" envDefault:"6"`
	PathCacheTTL time.Duration `env:"PATH_CACHE_TTL" envDefault:"168h"`

	// Trend engine
	TrendWindowYears     int           `env:"TREND_WINDOW_YEARS"     envDefault:"2"`
	TrendRefreshInterval time.Duration `env:"TREND_REFRESH_INTERVAL" envDefault:"6h"`

	// ApplyWorkers caps how many works a full rebuild processes concurrently.
	ApplyWorkers int `env:"APPLY_WORKERS" envDefault:"8"`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate rejects values the env tags alone cannot express.
func (c *Config) validate() error {
	if c.PerformerPerformerCap < 2 {
		return fmt.Errorf("config: PERFORMER_PERFORMER_CAP must be at least 2, got %d", c.PerformerPerformerCap)
	}
	if c.PerformerDirectorCap < 1 {
		return fmt.Errorf("config: PERFORMER_DIRECTOR_CAP must be at least 1, got %d", c.PerformerDirectorCap)
	}
	if c.MaxPathDepth < 1 {
		return fmt.Errorf("config: MAX_PATH_DEPTH must be at least 1, got %d", c.MaxPathDepth)
	}
	if c.TrendWindowYears < 1 {
		return fmt.Errorf("config: TREND_WINDOW_YEARS must be at least 1, got %d", c.TrendWindowYears)
	}
	if c.ApplyWorkers < 1 {
		return fmt.Errorf("config: APPLY_WORKERS must be at least 1, got %d", c.ApplyWorkers)
	}
	for _, role := range c.KeyCrewRoles {
		if strings.TrimSpace(role) == "" {
			return fmt.Errorf("config: KEY_CREW_ROLES contains an empty role name")
		}
	}
	return nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// ExtraOriginList returns EXTRA_ORIGINS split into individual origins.
func (c *Config) ExtraOriginList() []string {
	if c.ExtraOrigins == "" {
		return nil
	}
	parts := strings.Split(c.ExtraOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
