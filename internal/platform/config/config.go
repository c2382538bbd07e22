// Copyright (c) 2026 Carvia. All rights reserved.
// Author: platform@carvia.app

/*
Package config handles client-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (API client, hubs) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the client is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the Carvia client.
type Config struct {

	// APIBaseURL selects the API and realtime host. The default points at a
	// local development backend so the client runs out of the box.
	APIBaseURL string `env:"CARVIA_API_URL" envDefault:"http://localhost:5224"`

	// Realtime hub endpoints, resolved relative to APIBaseURL.
	ChatHubPath   string `env:"CARVIA_CHAT_HUB_PATH"   envDefault:"/hubs/chat"`
	FriendHubPath string `env:"CARVIA_FRIEND_HUB_PATH" envDefault:"/hubs/friends"`

	// StateDir is where the persisted session file lives. Empty selects a
	// per-user default under the OS config directory.
	StateDir string `env:"CARVIA_STATE_DIR"`

	Environment string `env:"CARVIA_ENVIRONMENT" envDefault:"development"`
	Debug       bool   `env:"CARVIA_DEBUG"       envDefault:"false"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	// Resolve the default state directory lazily so tests can override it.
	if cfg.StateDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			// No home directory (containers, CI). The storage layer treats an
			// empty dir as an unavailable store rather than failing startup.
			return cfg, nil
		}
		cfg.StateDir = filepath.Join(base, "carvia")
	}

	return cfg, nil
}

// IsDevelopment reports whether the client targets a development backend.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the client targets the production backend.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
