package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Storage backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"quiz-pool"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Pool        Pool
	Storage     Storage
	Postgres    Postgres
	Redis       Redis
	SMTP        SMTP
	Certificate Certificate
}

// Pool groups rotation defaults and the refresh timer.
type Pool struct {
	Levels          []string      `env:"POOL_LEVELS" envSeparator:"," envDefault:"U10,11-15,16+"`
	RefreshInterval time.Duration `env:"POOL_REFRESH_INTERVAL" envDefault:"24h"`
	QuestionCount   int           `env:"POOL_QUESTION_COUNT" envDefault:"20"`
	PoolDays        int           `env:"POOL_DAYS_DEFAULT" envDefault:"5"`
	ChurnPercentMin int           `env:"POOL_CHURN_MIN_DEFAULT" envDefault:"10"`
	ChurnPercentMax int           `env:"POOL_CHURN_MAX_DEFAULT" envDefault:"15"`
}

// Storage selects where the bank and pool live.
type Storage struct {
	Backend string        `env:"STORAGE_BACKEND" envDefault:"file"`
	DataDir string        `env:"DATA_DIR" envDefault:"data"`
	Timeout time.Duration `env:"STORAGE_TIMEOUT" envDefault:"5s"`
}

// Postgres captures connection info for the SQL database.
type Postgres struct {
	Host     string `env:"PG_HOST" envDefault:"localhost"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER" envDefault:""`
	Password string `env:"PG_PASSWORD" envDefault:""`
	Database string `env:"PG_DATABASE" envDefault:""`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
	MaxConns int    `env:"PG_MAX_CONNS" envDefault:"10"`
}

// DSN renders a pgx keyword/value connection string.
func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode, p.MaxConns)
}

// Redis holds pool-state store configuration.
type Redis struct {
	Addr      string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	DB        int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize  int    `env:"REDIS_POOL_SIZE" envDefault:"10"`
	KeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"quizpool"`
}

// SMTP holds email server configuration.
type SMTP struct {
	Host      string `env:"SMTP_HOST" envDefault:""`
	Port      int    `env:"SMTP_PORT" envDefault:"587"`
	Username  string `env:"SMTP_USERNAME" envDefault:""`
	Password  string `env:"SMTP_PASSWORD" envDefault:""`
	FromEmail string `env:"SMTP_FROM_EMAIL" envDefault:"quiz@localhost"`
}

// Certificate configures rendering and throttling of certificates.
type Certificate struct {
	FontPath      string `env:"CERTIFICATE_FONT" envDefault:""`
	RatePerMinute int    `env:"CERTIFICATE_RATE_PER_MINUTE" envDefault:"30"`
	Burst         int    `env:"CERTIFICATE_BURST" envDefault:"5"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate checks cross-field constraints env tags cannot express.
func (c *App) Validate() error {
	switch c.Storage.Backend {
	case BackendFile, BackendRedis:
	case BackendPostgres:
		if c.Postgres.User == "" || c.Postgres.Database == "" {
			return fmt.Errorf("PG_USER and PG_DATABASE are required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend)
	}
	if c.Pool.QuestionCount <= 0 {
		return fmt.Errorf("POOL_QUESTION_COUNT must be positive")
	}
	if c.Pool.PoolDays < 1 {
		return fmt.Errorf("POOL_DAYS_DEFAULT must be at least 1")
	}
	if c.Pool.ChurnPercentMin < 0 || c.Pool.ChurnPercentMax > 100 || c.Pool.ChurnPercentMin > c.Pool.ChurnPercentMax {
		return fmt.Errorf("churn defaults must satisfy 0 <= min <= max <= 100")
	}
	return nil
}
