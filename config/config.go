package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

type Config struct {
	Telegram TelegramConfig
	Admin    AdminConfig
	Storage  string
	DB       DBConfig
	SQLite   SQLiteConfig
	PhotoDir string
	Redis    RedisConfig
	AMQP     AMQPConfig
	Notify   NotifyConfig
	Script   ScriptConfig
}

type TelegramConfig struct {
	Token string
}

type AdminConfig struct {
	ID           int64
	PasswordHash string // bcrypt; empty disables the /admin password prompt
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// URL returns the pgx connection string.
func (c DBConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s",
		c.User, c.Password, c.Host, c.Port, c.Database,
	)
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Addr       string // empty keeps sessions in memory
	SessionTTL time.Duration
}

type AMQPConfig struct {
	URL      string // empty disables order events
	Exchange string
}

type NotifyConfig struct {
	Retries int
	Backoff time.Duration
}

type ScriptConfig struct {
	PauseScale float64
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("DB_PORT: %w", err)
	}
	adminID, err := strconv.ParseInt(getEnv("ADMIN_ID", "0"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("ADMIN_ID: %w", err)
	}
	ttl, err := time.ParseDuration(getEnv("SESSION_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("SESSION_TTL: %w", err)
	}
	retries, err := strconv.Atoi(getEnv("NOTIFY_RETRIES", "3"))
	if err != nil {
		return nil, fmt.Errorf("NOTIFY_RETRIES: %w", err)
	}
	backoffMs, err := strconv.Atoi(getEnv("NOTIFY_BACKOFF_MS", "500"))
	if err != nil {
		return nil, fmt.Errorf("NOTIFY_BACKOFF_MS: %w", err)
	}
	pauseScale, err := strconv.ParseFloat(getEnv("PAUSE_SCALE", "1"), 64)
	if err != nil {
		return nil, fmt.Errorf("PAUSE_SCALE: %w", err)
	}

	return &Config{
		Telegram: TelegramConfig{
			Token: getEnv("TOKEN", ""),
		},
		Admin: AdminConfig{
			ID:           adminID,
			PasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		},
		Storage: strings.ToLower(getEnv("STORAGE", StorageSQLite)),
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     port,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "cafe"),
		},
		SQLite: SQLiteConfig{
			Path: getEnv("SQLITE_PATH", "data/cafe.db"),
		},
		PhotoDir: getEnv("PHOTO_DIR", "data/photos"),
		Redis: RedisConfig{
			Addr:       getEnv("REDIS_ADDR", ""),
			SessionTTL: ttl,
		},
		AMQP: AMQPConfig{
			URL:      getEnv("AMQP_URL", ""),
			Exchange: getEnv("AMQP_EXCHANGE", "cafe_orders"),
		},
		Notify: NotifyConfig{
			Retries: retries,
			Backoff: time.Duration(backoffMs) * time.Millisecond,
		},
		Script: ScriptConfig{
			PauseScale: pauseScale,
		},
	}, nil
}

// Validate reports the first missing or inconsistent setting.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("TOKEN not set")
	}
	if c.Admin.ID == 0 {
		return fmt.Errorf("ADMIN_ID not set")
	}
	switch c.Storage {
	case StorageSQLite, StoragePostgres:
	default:
		return fmt.Errorf("STORAGE must be %q or %q, got %q", StorageSQLite, StoragePostgres, c.Storage)
	}
	if c.Notify.Retries < 1 {
		return fmt.Errorf("NOTIFY_RETRIES must be >= 1")
	}
	if c.Script.PauseScale < 0 {
		return fmt.Errorf("PAUSE_SCALE must be >= 0")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
