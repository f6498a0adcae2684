// Copyright (c) 2026 zco.mx. All rights reserved.
// Author: zcomix developers <dev@zco.mx>

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
  - DI-Friendly: Passed to core components (DB, Redis, stores) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the zcomix API server and worker.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// SiteURL is the public base URL, used in feeds and torrent comments.
	SiteURL string `env:"SITE_URL" envDefault:"https://zco.mx"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// UploadsRoot is the base directory for image originals and derivatives.
	UploadsRoot string `env:"UPLOADS_ROOT" envDefault:"./var/uploads"`

	// ArchiveRoot is the base directory for cbz archives and torrent files.
	ArchiveRoot string `env:"ARCHIVE_ROOT" envDefault:"./var/archive"`

	// WorkerCount is the size of the job worker pool.
	WorkerCount int `env:"WORKER_COUNT" envDefault:"2"`

	// Administration
	AdminEmail string   `env:"ADMIN_EMAIL" envDefault:"admin@zco.mx"`
	AdminIPs   []string `env:"ADMIN_IPS" envSeparator:","`

	// HMACKey signs values that round-trip through clients.
	HMACKey string `env:"HMAC_KEY" envDefault:""`

	// Contributions
	PayPalEmail string `env:"PAYPAL_EMAIL" envDefault:""`

	// TrackerURLs is the announce list embedded in every torrent.
	TrackerURLs []string `env:"TRACKER_URLS" envSeparator:"," envDefault:"https://bt.zco.mx:6969/announce"`

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

	return cfg, nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
