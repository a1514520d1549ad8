package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Config struct {
	Port     string `env:"PORT,default=8080"`
	Storage  string `env:"STORAGE,default=postgres"`
	Timezone string `env:"APP_TIMEZONE,default=UTC"`

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=text"`

	CORSOrigins string `env:"CORS_ORIGINS,default=*"`

	DB    DBConfig
	Redis RedisConfig
	Auth  AuthConfig

	StreakRolloverCron string `env:"STREAK_ROLLOVER_CRON,default=5 0 * * *"`
	StreakQueueSize    int    `env:"STREAK_QUEUE_SIZE,default=256"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=5s"`
}

type DBConfig struct {
	User            string        `env:"DB_USER,default=kanso_user"`
	Password        string        `env:"DB_PASSWORD"`
	Name            string        `env:"DB_NAME,default=kanso_db"`
	Host            string        `env:"DB_HOST,default=localhost"`
	Port            string        `env:"DB_PORT,default=5432"`
	SSLMode         string        `env:"DB_SSLMODE,default=disable"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS,default=25"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS,default=25"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME,default=5m"`
	MigrateOnStart  bool          `env:"DB_MIGRATE,default=true"`
}

type RedisConfig struct {
	Host     string `env:"REDIS_HOST"`
	Port     string `env:"REDIS_PORT,default=6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,default=0"`
	PoolSize int    `env:"REDIS_POOL_SIZE,default=10"`
}

type AuthConfig struct {
	JWTSecret     string        `env:"JWT_SECRET"`
	JWTIssuer     string        `env:"JWT_ISSUER,default=kanso-habits"`
	TokenDuration time.Duration `env:"JWT_TTL,default=72h"`
}

// Load reads an optional .env file and decodes the environment into a
// Config. Variables already set in the environment win over the file.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("config: decode environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage {
	case StorageMemory, StoragePostgres:
	default:
		return fmt.Errorf("config: unknown STORAGE %q", c.Storage)
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("config: APP_TIMEZONE: %w", err)
	}

	if c.Auth.JWTSecret == "" {
		return errors.New("config: JWT_SECRET is required")
	}

	if c.StreakQueueSize < 1 {
		return errors.New("config: STREAK_QUEUE_SIZE must be positive")
	}

	return nil
}

// Location returns the reference time zone. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// AllowedOrigins splits CORS_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}
