// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package config loads runtime configuration: flag defaults, overridden by
// an optional YAML file, overridden by explicitly-set command-line flags.
package config

import (
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Strategy names accepted by auth.strategy.
const (
	StrategyNone    = "none"
	StrategyBasic   = "basic"
	StrategySession = "session"
)

// Config is the full runtime configuration.
type Config struct {
	Auth     AuthConfig     `koanf:"auth"`
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
}

// AuthConfig controls the gate and session policy.
type AuthConfig struct {
	// Strategy selects credential resolution: none, basic, or session.
	Strategy string `koanf:"strategy"`
	// SessionDuration is the session lifetime in seconds; 0 means sessions
	// never expire.
	SessionDuration int `koanf:"session_duration"`
	// SessionCookieName is the cookie carrying the session token.
	SessionCookieName string `koanf:"session_cookie_name"`
	// ExemptPaths lists path patterns that skip authentication; a trailing
	// '*' makes a pattern match by prefix.
	ExemptPaths []string `koanf:"exempt_paths"`
}

// ServerConfig holds listen addresses.
type ServerConfig struct {
	ListenAddr  string `koanf:"listen_addr"`
	MetricsAddr string `koanf:"metrics_addr"`
	ControlAddr string `koanf:"control_addr"`
}

// DatabaseConfig holds the postgres connection string.
type DatabaseConfig struct {
	URL string `koanf:"url"`
}

// LogConfig controls log output.
type LogConfig struct {
	// Format is "json" or "text".
	Format string `koanf:"format"`
}

// RegisterFlags declares every config key as a flag with its default value.
// The flag set is the single source of defaults.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("auth.strategy", StrategySession, "credential strategy: none, basic, or session")
	flags.Int("auth.session_duration", 0, "session lifetime in seconds (0 = never expires)")
	flags.String("auth.session_cookie_name", "session_id", "session cookie name")
	flags.StringSlice("auth.exempt_paths", []string{"/", "/status", "/users", "/sessions", "/reset_password"},
		"path patterns exempt from authentication (trailing * = prefix)")
	flags.String("server.listen_addr", ":8080", "API listen address")
	flags.String("server.metrics_addr", "127.0.0.1:9100", "observability listen address")
	flags.String("server.control_addr", "127.0.0.1:9200", "control plane listen address")
	flags.String("database.url", "", "postgres connection URL")
	flags.String("log.format", "text", "log format: json or text")
}

// Load builds the configuration from flag defaults, then the YAML file at
// path (if non-empty), then any explicitly-set flags.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("path", path).Wrap(err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("path", path).Wrap(err)
		}
	}

	// Passing k makes unchanged flags yield to file-provided values while
	// still supplying defaults for keys the file omits.
	if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enum fields and ranges.
func (c *Config) Validate() error {
	switch c.Auth.Strategy {
	case StrategyNone, StrategyBasic, StrategySession:
	default:
		return oops.Code("CONFIG_INVALID").With("auth.strategy", c.Auth.Strategy).
			Errorf("auth.strategy must be none, basic, or session")
	}

	if c.Auth.SessionDuration < 0 {
		return oops.Code("CONFIG_INVALID").With("auth.session_duration", c.Auth.SessionDuration).
			Errorf("auth.session_duration cannot be negative")
	}

	if c.Auth.SessionCookieName == "" && c.Auth.Strategy == StrategySession {
		return oops.Code("CONFIG_INVALID").
			Errorf("auth.session_cookie_name is required for the session strategy")
	}

	switch c.Log.Format {
	case "json", "text":
	default:
		return oops.Code("CONFIG_INVALID").With("log.format", c.Log.Format).
			Errorf("log.format must be json or text")
	}

	return nil
}

// SessionTTL returns the session duration as a time.Duration.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Auth.SessionDuration) * time.Second
}
