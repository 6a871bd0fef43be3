// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package config

import (
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// renderable mirrors Config with yaml tags so a starter file can be
// written with the same keys Load reads back.
type renderable struct {
	Server struct {
		Addr       string `yaml:"addr"`
		CookieName string `yaml:"cookie_name"`
	} `yaml:"server"`
	Auth struct {
		Strategy      string   `yaml:"strategy"`
		ExcludedPaths []string `yaml:"excluded_paths"`
		SessionTTL    string   `yaml:"session_ttl"`
	} `yaml:"auth"`
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Log struct {
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() (*Config, error) {
	return Load("", nil)
}

// RenderYAML renders cfg as a YAML document suitable for a starter
// config file.
func RenderYAML(cfg *Config) ([]byte, error) {
	var r renderable
	r.Server.Addr = cfg.Server.Addr
	r.Server.CookieName = cfg.Server.CookieName
	r.Auth.Strategy = cfg.Auth.Strategy
	r.Auth.ExcludedPaths = cfg.Auth.ExcludedPaths
	r.Auth.SessionTTL = cfg.Auth.SessionTTL.String()
	if cfg.Auth.SessionTTL == 0 {
		r.Auth.SessionTTL = "0"
	}
	r.Database.URL = cfg.Database.URL
	r.Metrics.Addr = cfg.Metrics.Addr
	r.Log.Format = cfg.Log.Format

	out, err := yaml.Marshal(&r)
	if err != nil {
		return nil, oops.Code("CONFIG_RENDER_FAILED").Wrap(err)
	}
	return out, nil
}
