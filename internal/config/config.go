// Package config loads the engine's server configuration from YAML with
// sensible defaults when the file is missing.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "2s" parse directly.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the full server configuration.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	Namespace  string `yaml:"namespace"`
	LogLevel   string `yaml:"log_level"`

	Storage   StorageConfig   `yaml:"storage"`
	Catalog   BackendConfig   `yaml:"catalog"`
	Orders    BackendConfig   `yaml:"orders"`
	Checkout  CheckoutConfig  `yaml:"checkout"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	// Backend is one of "memory", "redis", "postgres".
	Backend string `yaml:"backend"`

	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// PostgresConfig configures the PostgreSQL backend.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// BackendConfig points at one external collaborator.
type BackendConfig struct {
	BaseURL string   `yaml:"base_url"`
	Timeout Duration `yaml:"timeout"`
}

// CheckoutConfig tunes the reconciler.
type CheckoutConfig struct {
	LookupTimeout Duration `yaml:"lookup_timeout"`
}

// RateLimitConfig tunes the per-client API rate limiter.
type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
	Burst             int `yaml:"burst"`
}

// Default returns the configuration used when no file is present: in-memory
// storage, local collaborators, modest rate limits.
func Default() Config {
	return Config{
		ListenAddr: ":8080",
		Namespace:  "default",
		LogLevel:   "info",
		Storage:    StorageConfig{Backend: "memory"},
		Catalog:    BackendConfig{BaseURL: "http://localhost:9080", Timeout: Duration(5 * time.Second)},
		Orders:     BackendConfig{BaseURL: "http://localhost:9081", Timeout: Duration(10 * time.Second)},
		Checkout:   CheckoutConfig{LookupTimeout: Duration(5 * time.Second)},
		RateLimit:  RateLimitConfig{RequestsPerSecond: 20, Burst: 40},
	}
}

// Load reads and validates the configuration at path, filling unset fields
// from Default.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadOrDefault loads the configuration at path, falling back to Default
// when the file does not exist.
func LoadOrDefault(path string) (Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

func (c Config) validate() error {
	switch c.Storage.Backend {
	case "memory":
	case "redis":
		if c.Storage.Redis.Addr == "" {
			return fmt.Errorf("storage.redis.addr is required for the redis backend")
		}
	case "postgres":
		if c.Storage.Postgres.DSN == "" {
			return fmt.Errorf("storage.postgres.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Namespace == "" {
		return fmt.Errorf("namespace must not be empty")
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate limit settings must not be negative")
	}
	return nil
}
