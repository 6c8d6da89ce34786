// internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	_ "github.com/joho/godotenv/autoload"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config is the service configuration, read from the environment (and .env when present).
type Config struct {
	Env      string `env:"BLACKJACK_ENV" envDefault:"development"`
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"10s"`

	// AllowedOrigins is only enforced in production; development allows any origin.
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"blackjack.db"`
	Postgres    Postgres

	Redis     Redis
	Historian Historian

	// RateLimitRPS of 0 disables per-client rate limiting.
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"20"`

	LockTTL  time.Duration `env:"GAME_LOCK_TTL" envDefault:"5s"`
	LockWait time.Duration `env:"GAME_LOCK_WAIT" envDefault:"2s"`

	Auth Auth
}

// Postgres uses the same variable names as the rest of our services.
type Postgres struct {
	User     string `env:"POSTGRES_USER"`
	Password string `env:"POSTGRES_PASSWORD"`
	Host     string `env:"PG_HOST" envDefault:"localhost"`
	Port     string `env:"PG_PORT" envDefault:"5432"`
	Database string `env:"PG_DATABASE"`
}

// ConnString renders a postgres:// URL for pgxpool.
func (p Postgres) ConnString() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(p.User, p.Password),
		Host:   p.Host + ":" + p.Port,
		Path:   "/" + p.Database,
	}
	return u.String()
}

// Redis is optional. With an empty Addr the server falls back to in-process locks and no action log.
type Redis struct {
	Addr string `env:"REDIS_ADDR"`
	DB   int    `env:"REDIS_DB" envDefault:"0"`
}

type Historian struct {
	Queue     string        `env:"HISTORIAN_QUEUE_NAME" envDefault:"blackjack_actions"`
	BatchSize int           `env:"HISTORIAN_BATCH_SIZE" envDefault:"20"`
	FlushMs   int           `env:"HISTORIAN_FLUSH_MS" envDefault:"500"`
	PopWait   time.Duration `env:"HISTORIAN_POP_WAIT" envDefault:"3s"`
}

// FlushDelay is FlushMs as a duration.
func (h Historian) FlushDelay() time.Duration {
	return time.Duration(h.FlushMs) * time.Millisecond
}

// Auth points at the ed25519 key pair shared with the identity service.
// Empty paths generate an ephemeral pair, which is only useful for local runs.
type Auth struct {
	PrivateKeyPath  string `env:"AUTH_PRIVATE_KEY_PATH"`
	PublicKeyPath   string `env:"AUTH_PUBLIC_KEY_PATH"`
	TokenExpireTime string `env:"TOKEN_EXPIRE_TIME"`
}

// Load parses the environment into a Config and validates it.
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

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres, DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.LockWait <= 0 {
		return fmt.Errorf("GAME_LOCK_WAIT must be positive")
	}
	if c.LockTTL < c.LockWait {
		return fmt.Errorf("GAME_LOCK_TTL (%s) must not be shorter than GAME_LOCK_WAIT (%s)", c.LockTTL, c.LockWait)
	}
	if c.RateLimitRPS < 0 || (c.RateLimitRPS > 0 && c.RateLimitBurst < 1) {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0 and RATE_LIMIT_BURST >= 1 when limiting")
	}
	if c.Historian.BatchSize <= 0 {
		return fmt.Errorf("HISTORIAN_BATCH_SIZE must be positive")
	}
	return nil
}

// IsProduction reports BLACKJACK_ENV=production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
