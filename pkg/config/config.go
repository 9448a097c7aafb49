// SPDX-License-Identifier: Apache-2.0

// Package config loads the service configuration from defaults, an optional
// YAML file and ACTIVA_-prefixed environment variables, in that order of
// precedence.
package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Log           LogConfig           `koanf:"log"`
	Server        ServerConfig        `koanf:"server"`
	ProfileSource ProfileSourceConfig `koanf:"profile_source"`
	LLM           LLMConfig           `koanf:"llm"`
	Retry         RetryConfig         `koanf:"retry"`
	Taxonomy      TaxonomyConfig      `koanf:"taxonomy"`
	Telemetry     TelemetryConfig     `koanf:"telemetry"`
	Audit         AuditConfig         `koanf:"audit"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type ServerConfig struct {
	Addr                   string `koanf:"addr"`
	ShutdownTimeoutSeconds int    `koanf:"shutdown_timeout_seconds"`
}

type ProfileSourceConfig struct {
	BaseURL        string `koanf:"base_url"`
	AuthHeader     string `koanf:"auth_header"`
	TimeoutSeconds int    `koanf:"timeout_seconds"`
}

type LLMConfig struct {
	Provider       string `koanf:"provider"` // ollama
	Model          string `koanf:"model"`
	BaseURL        string `koanf:"base_url"`
	TimeoutSeconds int    `koanf:"timeout_seconds"`
}

type RetryConfig struct {
	MaxAttempts   int     `koanf:"max_attempts"`
	BaseBackoffMs int     `koanf:"base_backoff_ms"`
	MaxBackoffMs  int     `koanf:"max_backoff_ms"`
	Jitter        float64 `koanf:"jitter"`
}

type TaxonomyConfig struct {
	Dir string `koanf:"dir"`
}

type TelemetryConfig struct {
	Enabled      bool   `koanf:"enabled"`
	Exporter     string `koanf:"exporter"` // stdout, otlp
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	OTLPInsecure bool   `koanf:"otlp_insecure"`
}

type AuditConfig struct {
	Enabled    bool   `koanf:"enabled"`
	SQLitePath string `koanf:"sqlite_path"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Defaults
	k.Set("log.level", "info")
	k.Set("log.format", "text")
	k.Set("server.addr", ":8080")
	k.Set("server.shutdown_timeout_seconds", 10)
	k.Set("profile_source.base_url", "http://localhost:9090")
	k.Set("profile_source.timeout_seconds", 25)
	k.Set("llm.provider", "ollama")
	k.Set("llm.model", "qwen2.5:7b-instruct")
	k.Set("llm.base_url", "http://localhost:11434")
	k.Set("llm.timeout_seconds", 60)
	k.Set("retry.max_attempts", 3)
	k.Set("retry.base_backoff_ms", 500)
	k.Set("retry.max_backoff_ms", 8000)
	k.Set("retry.jitter", 0.2)
	k.Set("taxonomy.dir", "taxonomies")
	k.Set("telemetry.enabled", false)
	k.Set("telemetry.exporter", "stdout")
	k.Set("audit.enabled", false)
	k.Set("audit.sqlite_path", "activa_runs.db")

	// 1. Load from file
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// 2. Load from ENV. Double underscore separates nesting levels so keys
	// with underscores survive: ACTIVA_PROFILE_SOURCE__BASE_URL ->
	// profile_source.base_url.
	if err := k.Load(env.Provider("ACTIVA_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "ACTIVA_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ProfileTimeout returns the profile source timeout as a duration.
func (c *Config) ProfileTimeout() time.Duration {
	return time.Duration(c.ProfileSource.TimeoutSeconds) * time.Second
}

// LLMTimeout returns the per-classification-call timeout as a duration.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

// ShutdownTimeout returns the graceful shutdown budget as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}

// RetryPolicy converts the retry section into backoff parameters.
func (c *Config) RetryPolicy() (maxAttempts int, base, max time.Duration, jitter float64) {
	return c.Retry.MaxAttempts,
		time.Duration(c.Retry.BaseBackoffMs) * time.Millisecond,
		time.Duration(c.Retry.MaxBackoffMs) * time.Millisecond,
		c.Retry.Jitter
}
