// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 YoungCoder Contributors

// Package config loads service configuration from defaults, an optional YAML
// file, the environment and command-line flags, in that order of precedence.
package config

import (
	"errors"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"

	"github.com/youngcoder/youngcoder/internal/logging"
)

// EnvProduction is the env value that enables production behaviour
// such as Secure cookies.
const EnvProduction = "production"

// Config is the complete service configuration.
type Config struct {
	Env      string         `koanf:"env"`
	HTTP     HTTPConfig     `koanf:"http"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
	Sessions SessionsConfig `koanf:"sessions"`
	Log      LogConfig      `koanf:"log"`
}

// HTTPConfig configures the public API listener.
type HTTPConfig struct {
	Addr string `koanf:"addr"`
}

// MetricsConfig configures the observability listener. An empty address disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	URL string `koanf:"url"`
}

// AuthConfig configures token signing and password hashing.
type AuthConfig struct {
	JWTSecret  string        `koanf:"jwt_secret"`
	JWTIssuer  string        `koanf:"jwt_issuer"`
	BcryptCost int           `koanf:"bcrypt_cost"`
	SessionTTL time.Duration `koanf:"session_ttl"`
}

// SessionsConfig configures expired-session housekeeping.
type SessionsConfig struct {
	PurgeInterval time.Duration `koanf:"purge_interval"`
}

// LogConfig configures log output.
type LogConfig struct {
	Format string `koanf:"format"`
}

// Defaults returns the built-in configuration values.
func Defaults() map[string]any {
	return map[string]any{
		"env":                     "development",
		"http.addr":               ":8080",
		"metrics.addr":            "127.0.0.1:9100",
		"database.url":            "",
		"auth.jwt_secret":         "",
		"auth.jwt_issuer":         "youngcoder",
		"auth.bcrypt_cost":        12,
		"auth.session_ttl":        "168h",
		"sessions.purge_interval": "1h",
		"log.format":              logging.FormatJSON,
	}
}

// envKeys maps environment variable names to configuration keys.
var envKeys = map[string]string{
	"DATABASE_URL":           "database.url",
	"JWT_SECRET":             "auth.jwt_secret",
	"JWT_ISSUER":             "auth.jwt_issuer",
	"APP_ENV":                "env",
	"HTTP_ADDR":              "http.addr",
	"METRICS_ADDR":           "metrics.addr",
	"LOG_FORMAT":             "log.format",
	"BCRYPT_COST":            "auth.bcrypt_cost",
	"SESSION_TTL":            "auth.session_ttl",
	"SESSION_PURGE_INTERVAL": "sessions.purge_interval",
}

// FlagKeys maps command-line flag names to configuration keys.
// Flags not listed here are ignored by Load.
var FlagKeys = map[string]string{
	"env":            "env",
	"http-addr":      "http.addr",
	"metrics-addr":   "metrics.addr",
	"database-url":   "database.url",
	"log-format":     "log.format",
	"purge-interval": "sessions.purge_interval",
}

// Load builds a Config. path may be empty, in which case no file is read;
// a non-empty path that does not exist is an error. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "defaults").Wrap(err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	// NODE_ENV is the fallback for APP_ENV, so it loads first.
	if err := k.Load(env.ProviderWithValue("NODE_ENV", ".", mapEnv(map[string]string{"NODE_ENV": "env"})), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "environment").Wrap(err)
	}
	if err := k.Load(env.ProviderWithValue("", ".", mapEnv(envKeys)), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "environment").Wrap(err)
	}

	if flags != nil {
		provider := posflag.ProviderWithValue(flags, ".", k, func(name, value string) (string, any) {
			return FlagKeys[name], value
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	return &cfg, nil
}

// mapEnv returns an env callback that keeps only the named variables with
// non-empty values, renamed to their configuration keys.
func mapEnv(keys map[string]string) func(string, string) (string, any) {
	return func(name, value string) (string, any) {
		key, ok := keys[name]
		if !ok || strings.TrimSpace(value) == "" {
			return "", nil
		}
		return key, value
	}
}

// Production reports whether the service runs in the production environment.
func (c *Config) Production() bool {
	return strings.EqualFold(c.Env, EnvProduction)
}

// ValidateDatabase checks the settings needed by commands that only touch the database.
func (c *Config) ValidateDatabase() error {
	if c.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").With("key", "database.url").
			Errorf("database url is required (set DATABASE_URL)")
	}
	return nil
}

// Validate checks the settings needed to serve the API.
func (c *Config) Validate() error {
	var errs []error

	if err := c.ValidateDatabase(); err != nil {
		errs = append(errs, err)
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, oops.Code("CONFIG_INVALID").With("key", "auth.jwt_secret").
			Errorf("jwt secret is required (set JWT_SECRET)"))
	}
	if c.Auth.JWTIssuer == "" {
		errs = append(errs, oops.Code("CONFIG_INVALID").With("key", "auth.jwt_issuer").
			Errorf("jwt issuer cannot be empty"))
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, oops.Code("CONFIG_INVALID").With("key", "auth.bcrypt_cost").
			Errorf("bcrypt cost must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, c.Auth.BcryptCost))
	}
	if c.Auth.SessionTTL <= 0 {
		errs = append(errs, oops.Code("CONFIG_INVALID").With("key", "auth.session_ttl").
			Errorf("session ttl must be positive, got %s", c.Auth.SessionTTL))
	}
	if c.Sessions.PurgeInterval < 0 {
		errs = append(errs, oops.Code("CONFIG_INVALID").With("key", "sessions.purge_interval").
			Errorf("purge interval cannot be negative, got %s", c.Sessions.PurgeInterval))
	}
	if c.HTTP.Addr == "" {
		errs = append(errs, oops.Code("CONFIG_INVALID").With("key", "http.addr").
			Errorf("http address is required"))
	}
	if !logging.ValidFormat(c.Log.Format) {
		errs = append(errs, oops.Code("CONFIG_INVALID").With("key", "log.format").
			Errorf("log format must be 'json' or 'text', got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// LogValue renders the configuration without secrets.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("env", c.Env),
		slog.String("http_addr", c.HTTP.Addr),
		slog.String("metrics_addr", c.Metrics.Addr),
		slog.String("database_url", redactURL(c.Database.URL)),
		slog.String("jwt_issuer", c.Auth.JWTIssuer),
		slog.Bool("jwt_secret_set", c.Auth.JWTSecret != ""),
		slog.Int("bcrypt_cost", c.Auth.BcryptCost),
		slog.Duration("session_ttl", c.Auth.SessionTTL),
		slog.Duration("purge_interval", c.Sessions.PurgeInterval),
		slog.String("log_format", c.Log.Format),
	)
}

// redactURL hides the password of a connection URL.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		if strings.Contains(raw, "password=") {
			return "[REDACTED]"
		}
		return raw
	}
	return u.Redacted()
}
