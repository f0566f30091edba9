package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

type Config struct {
	Env   string `env:"APP_ENV" envDefault:"development"`
	Port  string `env:"PORT" envDefault:"8080"`
	Debug bool   `env:"DEBUG" envDefault:"false"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"sqlite"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"dice.db"`

	RedisURL  string `env:"REDIS_URL" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASS"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	CacheVersion   string        `env:"CACHE_VERSION" envDefault:"v11"`
	OfflineOrigin  string        `env:"OFFLINE_ORIGIN" envDefault:"http://localhost:8080"`
	OfflinePort    string        `env:"OFFLINE_PORT" envDefault:"8090"`
	OfflineDriver  string        `env:"OFFLINE_STORE_DRIVER" envDefault:"sqlite"`
	OfflinePath    string        `env:"OFFLINE_SQLITE_PATH" envDefault:"offline-cache.db"`
	OfflineTimeout time.Duration `env:"OFFLINE_TIMEOUT" envDefault:"5s"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	for _, driver := range []string{c.StoreDriver, c.OfflineDriver} {
		switch driver {
		case DriverRedis, DriverSQLite, DriverMemory:
		default:
			return fmt.Errorf("unsupported store driver: %q", driver)
		}
	}
	if strings.TrimSpace(c.CacheVersion) == "" {
		return fmt.Errorf("cache version is required")
	}
	if c.OfflineTimeout <= 0 {
		return fmt.Errorf("offline timeout must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
