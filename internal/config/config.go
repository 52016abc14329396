package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"`
	// APIKeys are the bearer tokens accepted by the admin API. Empty disables auth.
	APIKeys []string `mapstructure:"api_keys"`
}

type StorageConfig struct {
	Driver    string `mapstructure:"driver"` // file, sqlite or memory
	DataDir   string `mapstructure:"data_dir"`
	SQLiteDSN string `mapstructure:"sqlite_dsn"`
	// EncryptionKey is a base64 AES-256 key. When set, API keys are sealed at rest.
	EncryptionKey string `mapstructure:"encryption_key"`
	Watch         bool   `mapstructure:"watch"`
}

type CacheConfig struct {
	Driver string        `mapstructure:"driver"` // none, memory or redis
	TTL    time.Duration `mapstructure:"ttl"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type CatalogConfig struct {
	// SeedFile is a YAML catalog loaded when the store is empty. Empty uses the
	// built-in providers.
	SeedFile  string `mapstructure:"seed_file"`
	Seed      bool   `mapstructure:"seed"`
	Generator string `mapstructure:"generator"`
}

type TelemetryConfig struct {
	Tracing bool `mapstructure:"tracing"`
	Metrics bool `mapstructure:"metrics"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig() (*Config, error) {
	// Load .env file if present
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./internal/config")

	// Default Values
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.api_keys", []string{})
	v.SetDefault("storage.driver", "file")
	v.SetDefault("storage.data_dir", "./data")
	v.SetDefault("storage.sqlite_dsn", "file:catalog.db?_journal_mode=WAL&_busy_timeout=5000")
	v.SetDefault("storage.encryption_key", "")
	v.SetDefault("storage.watch", false)
	v.SetDefault("cache.driver", "none")
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "model-catalog:")
	v.SetDefault("rate_limit.requests_per_second", 10.0)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("catalog.seed_file", "")
	v.SetDefault("catalog.seed", true)
	v.SetDefault("catalog.generator", "model-catalog")
	v.SetDefault("telemetry.tracing", false)
	v.SetDefault("telemetry.metrics", true)

	// Environment Variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects driver names nothing can serve.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "file", "sqlite", "memory":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Cache.Driver {
	case "none", "memory", "redis":
	default:
		return fmt.Errorf("unknown cache driver %q", c.Cache.Driver)
	}
	return nil
}
