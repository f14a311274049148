package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Storage backends.
const (
	BackendNone     = "none"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// App holds the runtime configuration of the quiz service.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"knowledge-quest"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	LogLevel                string        `env:"LOG_LEVEL" envDefault:"info"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	AI       AI
	TTS      TTS
	Storage  Storage
	Redis    Redis
	Postgres Postgres
	SQLite   SQLite
	Session  Session
	Material Material
	Cache    Cache
}

// AI configures question generation over an OpenAI-compatible endpoint.
type AI struct {
	BaseURL       string        `env:"AI_BASE_URL" envDefault:"https://api.poe.com/v1"`
	APIKey        string        `env:"POE_API_KEY" envDefault:""`
	DefaultModel  string        `env:"AI_DEFAULT_MODEL" envDefault:"GPT-5-mini"`
	HTTPTimeout   time.Duration `env:"AI_HTTP_TIMEOUT" envDefault:"90s"`
	MaxInputChars int           `env:"AI_MAX_INPUT_CHARS" envDefault:"20000"`
	DefaultCount  int           `env:"AI_DEFAULT_COUNT" envDefault:"3"`
	Temperature   float32       `env:"AI_TEMPERATURE" envDefault:"0.7"`
	MaxTokens     int           `env:"AI_MAX_TOKENS" envDefault:"2000"`
}

// Enabled reports whether generation can reach a model at all.
func (a AI) Enabled() bool { return a.APIKey != "" }

// TTS configures narration.
type TTS struct {
	Enabled     bool          `env:"TTS_ENABLED" envDefault:"true"`
	Model       string        `env:"TTS_MODEL" envDefault:"ElevenLabs-v3"`
	HTTPTimeout time.Duration `env:"TTS_HTTP_TIMEOUT" envDefault:"30s"`
	Concurrency int           `env:"TTS_CONCURRENCY" envDefault:"1"`
	QueueSize   int           `env:"TTS_QUEUE_SIZE" envDefault:"16"`
	JobTimeout  time.Duration `env:"TTS_JOB_TIMEOUT" envDefault:"5m"`
}

// Storage selects where uploaded materials are kept.
type Storage struct {
	Backend string `env:"STORAGE_BACKEND" envDefault:"none"`
}

type Redis struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"10"`
	Key      string `env:"REDIS_MATERIALS_KEY" envDefault:"kq:materials"`
}

type Postgres struct {
	Host     string `env:"PG_HOST" envDefault:"localhost"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER" envDefault:""`
	Password string `env:"PG_PASSWORD" envDefault:""`
	Database string `env:"PG_DATABASE" envDefault:""`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
}

// DSN is the key/value connection string understood by pgx.
func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

type SQLite struct {
	Path string `env:"SQLITE_PATH" envDefault:"knowledge-quest.db"`
}

// Session configures the browser cookie and in-memory session lifetime.
type Session struct {
	CookieName    string        `env:"SESSION_COOKIE_NAME" envDefault:"kq-session"`
	Secret        string        `env:"SESSION_SECRET" envDefault:"change-me-in-production"`
	Secure        bool          `env:"SESSION_SECURE" envDefault:"false"`
	MaxIdle       time.Duration `env:"SESSION_MAX_IDLE" envDefault:"2h"`
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"5m"`
}

type Material struct {
	Workers        int   `env:"MATERIAL_WORKERS" envDefault:"4"`
	MaxUploadBytes int64 `env:"MATERIAL_MAX_UPLOAD_BYTES" envDefault:"33554432"`
}

// Cache controls the generation cache (Redis only).
type Cache struct {
	Enabled bool          `env:"GENERATION_CACHE_ENABLED" envDefault:"false"`
	TTL     time.Duration `env:"GENERATION_CACHE_TTL" envDefault:"1h"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *App) validate() error {
	switch c.Storage.Backend {
	case BackendNone, BackendRedis, BackendSQLite:
	case BackendPostgres:
		if c.Postgres.User == "" || c.Postgres.Database == "" {
			return fmt.Errorf("STORAGE_BACKEND=postgres requires PG_USER and PG_DATABASE")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend)
	}
	if c.Env == "production" && c.Session.Secret == "change-me-in-production" {
		return fmt.Errorf("SESSION_SECRET must be set in production")
	}
	if c.AI.DefaultCount <= 0 {
		return fmt.Errorf("AI_DEFAULT_COUNT must be positive")
	}
	return nil
}
