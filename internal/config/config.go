// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

// Package config loads configuration from defaults, an optional YAML
// file, GATEWARDEN_* environment variables, and command-line flags, in
// ascending precedence.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// envPrefix namespaces environment variable overrides,
// e.g. GATEWARDEN_AUTH_STRATEGY=session.
const envPrefix = "GATEWARDEN_"

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Auth     AuthConfig     `koanf:"auth"`
	Database DatabaseConfig `koanf:"database"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Log      LogConfig      `koanf:"log"`
}

// ServerConfig configures the API server.
type ServerConfig struct {
	Addr       string `koanf:"addr"`
	CookieName string `koanf:"cookie_name"`
}

// AuthConfig configures the request authentication gate.
type AuthConfig struct {
	Strategy      string        `koanf:"strategy"`
	ExcludedPaths []string      `koanf:"excluded_paths"`
	SessionTTL    time.Duration `koanf:"session_ttl"`
}

// DatabaseConfig configures PostgreSQL. An empty URL selects the
// in-memory repository.
type DatabaseConfig struct {
	URL string `koanf:"url"`
}

// MetricsConfig configures the observability server.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Format string `koanf:"format"`
}

// defaults returns the built-in configuration.
func defaults() map[string]any {
	return map[string]any{
		"server.addr":        ":8080",
		"server.cookie_name": "_my_session_id",
		"auth.strategy":      "session",
		"auth.excluded_paths": []string{
			"/",
			"/users/",
			"/sessions/",
			"/reset_password/",
		},
		"auth.session_ttl": time.Duration(0),
		"database.url":     "",
		"metrics.addr":     "127.0.0.1:9100",
		"log.format":       "json",
	}
}

// Load builds the configuration. path may be empty; flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	for key, value := range defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, oops.Code("CONFIG_DEFAULTS_FAILED").With("key", key).Wrap(err)
		}
	}

	if path != "" {
		// A missing file is fine; defaults, env, and flags still apply.
		if _, statErr := os.Stat(path); statErr == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, oops.Code("CONFIG_FILE_FAILED").With("path", path).Wrap(err)
			}
		}
	}

	// GATEWARDEN_SERVER_ADDR -> server.addr. Underscores inside a
	// section name are ambiguous, so only single-underscore keys map;
	// multi-word keys like cookie_name come from file or flags.
	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.Replace(
			strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".", 1)
	}), nil)
	if err != nil {
		return nil, oops.Code("CONFIG_ENV_FAILED").Wrap(err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_UNMARSHAL_FAILED").Wrap(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints not expressible per key.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("server.addr cannot be empty")
	}
	if c.Auth.SessionTTL < 0 {
		return oops.Code("CONFIG_INVALID").Errorf("auth.session_ttl cannot be negative")
	}
	switch c.Auth.Strategy {
	case "none", "basic", "session", "session-with-expiry":
	default:
		return oops.Code("CONFIG_INVALID").
			With("strategy", c.Auth.Strategy).
			Errorf("unknown auth.strategy %q", c.Auth.Strategy)
	}
	if c.Auth.Strategy == "session-with-expiry" && c.Auth.SessionTTL == 0 {
		return oops.Code("CONFIG_INVALID").
			Errorf("auth.session_ttl must be set for session-with-expiry")
	}
	return nil
}
