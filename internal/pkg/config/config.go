package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const (
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`
	JWTSecret string `env:"JWT_SECRET, required"`

	// Token validity is fixed at token.DefaultTTL; only clock skew is tunable.
	TokenLeeway time.Duration `env:"TOKEN_LEEWAY, default=30s"`
	BcryptCost  int           `env:"BCRYPT_COST,  default=10"`

	StoreDriver string   `env:"STORE_DRIVER, default=mongo"`
	CORSOrigins []string `env:"CORS_ORIGINS, default=*"`

	Mongo  MongoConfig
	SQLite SQLiteConfig
	Redis  RedisConfig
	Stats  StatsConfig
	Ingest IngestConfig
	Seed   SeedConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=road_damage"`
}

type SQLiteConfig struct {
	DSN string `env:"SQLITE_DSN, default=file:road_damage.db"`
}

// RedisConfig is optional: an empty Addr disables the token denylist and
// the dashboard snapshot cache.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB, default=0"`
}

type StatsConfig struct {
	CacheTTL    time.Duration `env:"STATS_CACHE_TTL,    default=1m"`
	RefreshSpec string        `env:"STATS_REFRESH_SPEC, default=@every 1m"`
}

type IngestConfig struct {
	Workers int `env:"INGEST_WORKERS, default=4"`
}

// SeedConfig carries the bootstrap account passwords. They are never
// defaulted in source; an unset password leaves that account unseeded.
type SeedConfig struct {
	Enabled           bool   `env:"SEED_ENABLED, default=true"`
	AdminPassword     string `env:"SEED_ADMIN_PASSWORD"`
	EngineerPassword  string `env:"SEED_ENGINEER_PASSWORD"`
	InspectorPassword string `env:"SEED_INSPECTOR_PASSWORD"`
}

// Load reads an optional .env file and then the process environment using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	_ = godotenv.Load()
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case DriverMongo, DriverSQLite:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	if c.TokenLeeway < 0 {
		return errors.New("TOKEN_LEEWAY must not be negative")
	}
	return nil
}

func (c *Config) IsProduction() bool { return c.Env == "production" }
