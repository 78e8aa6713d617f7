package dbconfig

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mcdev12/turntimer/go/internal/blobstore"
)

// Config holds Postgres connection settings.
type Config struct {
	Driver   string // database/sql driver name: postgres (lib/pq) or pgx
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	Table    string
}

// NewConfigFromEnv reads DB_* environment variables (with defaults).
func NewConfigFromEnv() Config {
	return Config{
		Driver:   getEnv("DB_DRIVER", "postgres"),
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvAsInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", "postgres"),
		Database: getEnv("DB_NAME", "turntimer"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
		Table:    getEnv("DB_TABLE", blobstore.DefaultTable),
	}
}

// DSN returns the Postgres connection URL. Both drivers accept it.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// NewValkeyConfigFromEnv reads VALKEY_* environment variables (with defaults).
func NewValkeyConfigFromEnv() blobstore.ValkeyConfig {
	return blobstore.ValkeyConfig{
		Addr:        getEnv("VALKEY_ADDR", "localhost:6379"),
		Username:    getEnv("VALKEY_USERNAME", ""),
		Password:    getEnv("VALKEY_PASSWORD", ""),
		DB:          getEnvAsInt("VALKEY_DB", 0),
		DialTimeout: time.Duration(getEnvAsInt("VALKEY_DIAL_TIMEOUT_MS", 5000)) * time.Millisecond,
		KeyPrefix:   getEnv("VALKEY_KEY_PREFIX", "turntimer:"),
		UseTLS:      getEnv("VALKEY_TLS", "false") == "true",
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
