// Package config loads process configuration from environment variables,
// optionally seeded from a .env file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store backend selectors.
const (
	StoreMemory = "memory"
	StoreBolt   = "bolt"
	StoreRedis  = "redis"
)

// Config holds all environment-based configuration for the session service.
type Config struct {
	AppName string `env:"APP_NAME" envDefault:"Session Service"`
	Port    string `env:"PORT" envDefault:"8080"`
	Env     string `env:"ENV" envDefault:"DEV"`

	// Store backend: memory, bolt, or redis. With redis, token records go to
	// redis while users and clients use bolt (or memory when no path is set).
	StoreBackend string `env:"STORE_BACKEND" envDefault:"memory"`
	BoltPath     string `env:"BOLT_PATH" envDefault:"./data/session-service.db"`

	RedisAddr      string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword  string `env:"REDIS_PASSWORD"`
	RedisDB        int    `env:"REDIS_DB" envDefault:"0"`
	RedisKeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"sessionsvc:"`

	BcryptCost         int           `env:"BCRYPT_COST" envDefault:"10"`
	AccessTokenExpiry  time.Duration `env:"ACCESS_TOKEN_EXPIRY" envDefault:"1h"`
	RefreshTokenExpiry time.Duration `env:"REFRESH_TOKEN_EXPIRY" envDefault:"168h"`

	// StoreTimeout bounds every store adapter call made by the HTTP layer.
	StoreTimeout time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`

	// Bootstrap admin credentials. When AdminEmail is absent from the store
	// at startup, an admin user and a default client are provisioned.
	AdminName           string `env:"ADMIN_NAME" envDefault:"admin"`
	AdminEmail          string `env:"ADMIN_EMAIL" envDefault:""`
	AdminPassword       string `env:"ADMIN_PASSWORD" envDefault:""`
	DefaultClientName   string `env:"DEFAULT_CLIENT_NAME" envDefault:""`
	DefaultClientSecret string `env:"DEFAULT_CLIENT_SECRET" envDefault:""`
}

// Load reads configuration from environment variables. A .env file is loaded
// first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// ListenAddr returns the port as a listen address (":8080").
func (c *Config) ListenAddr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case StoreMemory, StoreBolt, StoreRedis:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q (want memory, bolt, or redis)", c.StoreBackend)
	}
	if c.AccessTokenExpiry <= 0 || c.RefreshTokenExpiry <= 0 {
		return fmt.Errorf("token expiries must be positive")
	}
	return nil
}
