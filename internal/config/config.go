// Package config loads replay settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all replay configuration.
type Config struct {
	Trace   TraceConfig
	HTTP    HTTPConfig
	Logging LogConfig
}

// TraceConfig selects the trace to replay.
type TraceConfig struct {
	Path   string `envconfig:"KEEPALIVE_TRACE" default:""`
	Strict bool   `envconfig:"KEEPALIVE_STRICT" default:"false"`
}

// HTTPConfig holds the metrics/debug server configuration.
type HTTPConfig struct {
	Addr string        `envconfig:"KEEPALIVE_HTTP_ADDR" default:""`
	Hold time.Duration `envconfig:"KEEPALIVE_HTTP_HOLD" default:"0s"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// Load reads an optional .env file (files earlier in the list win), then
// the environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// a missing file is fine; variables may come from the environment
		_ = godotenv.Load(f)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Logging: LogConfig{Level: "info"},
	}
}
