// Package config defines the global configuration structure for the
// Minaret service. Configuration is loaded once at process startup and
// is immutable thereafter; values come from the OS environment with an
// optional .env file underneath.
//
// Any missing required value or invalid format causes startup to fail
// immediately.
package config

import (
	"time"
)

// Config is the top-level configuration struct. Sub-components receive
// only the specific subsets they require.
type Config struct {
	// System metadata
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"minaret"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server   ServerConfig
	Upstream UpstreamConfig
	Store    StoreConfig
	Rollover RolloverConfig
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"15s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`
}

// UpstreamConfig holds the timings provider settings.
type UpstreamConfig struct {
	// BaseURL is empty for the production provider endpoint.
	BaseURL string        `envconfig:"ALADHAN_BASE_URL" validate:"omitempty,url"`
	Timeout time.Duration `envconfig:"ALADHAN_TIMEOUT" default:"10s"`
}

// Store backend identifiers for STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// StoreConfig selects and configures the key-value persistence backend.
type StoreConfig struct {
	Backend string `envconfig:"STORE_BACKEND" default:"memory" validate:"oneof=memory redis postgres"`

	// Redis settings, used when Backend is "redis".
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisUsername string `envconfig:"REDIS_USERNAME"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`

	// Postgres settings, used when Backend is "postgres".
	DatabaseURL string `envconfig:"DATABASE_URL"`
}

// RolloverConfig tunes the daily schedule refresh job.
type RolloverConfig struct {
	Enabled bool `envconfig:"ROLLOVER_ENABLED" default:"true"`
	// WarmLocations is a semicolon-separated list of "lat,lon" pairs
	// kept warm in the cache alongside the active location, e.g.
	// "41.0082,28.9784;39.9334,32.8597".
	WarmLocations string `envconfig:"ROLLOVER_WARM_LOCATIONS"`
}
