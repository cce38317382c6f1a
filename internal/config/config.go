// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Snapshot backends selectable with SNAPSHOT_BACKEND.
const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendNone     = "none"
)

// Deck providers selectable with DECK_PROVIDER.
const (
	DeckHTTP  = "http"
	DeckLocal = "local"
)

// Config holds every setting the server and the historian read from the environment.
// A .env file in the working directory is loaded by the mains via godotenv/autoload.
type Config struct {
	Port     string
	LogLevel logrus.Level

	DeckProvider string
	DeckAPIURL   string
	DeckTimeout  time.Duration
	ThinkDelay   time.Duration

	SnapshotBackend  string
	SnapshotPath     string
	SQLitePath       string
	SnapshotKey      string
	SnapshotInterval time.Duration

	RedisAddr string
	RedisDB   int

	HistorianEnabled   bool
	HistorianQueue     string
	HistorianBatchSize int
	HistorianFlush     time.Duration

	PostgresUser     string
	PostgresPassword string
	PostgresHost     string
	PostgresPort     string
	PostgresDatabase string

	// TokenExpiry of 0 issues tokens without an exp claim.
	TokenExpiry time.Duration

	// Raw ed25519 key files. When unset the server signs with a key generated at startup,
	// so tokens stop verifying after a restart.
	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
}

// Load reads the configuration from the environment, applying defaults for unset keys.
func Load() (*Config, error) {
	level, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: level,

		DeckProvider: strings.ToLower(getEnv("DECK_PROVIDER", DeckHTTP)),
		DeckAPIURL:   getEnv("DECK_API_URL", "https://deckofcardsapi.com/api"),

		SnapshotBackend: strings.ToLower(getEnv("SNAPSHOT_BACKEND", BackendFile)),
		SnapshotPath:    getEnv("SNAPSHOT_PATH", "./games.json"),
		SQLitePath:      getEnv("SQLITE_PATH", "./games.db"),
		SnapshotKey:     getEnv("SNAPSHOT_KEY", "gofish:sessions"),

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:   getEnvInt("REDIS_DB", 0),

		HistorianEnabled:   getEnvBool("HISTORIAN_ENABLED", false),
		HistorianQueue:     getEnv("HISTORIAN_QUEUE_NAME", "gofish_actions"),
		HistorianBatchSize: getEnvInt("HISTORIAN_BATCH_SIZE", 20),
		HistorianFlush:     time.Duration(getEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,

		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresHost:     getEnv("PG_HOST", "localhost"),
		PostgresPort:     getEnv("PG_PORT", "5432"),
		PostgresDatabase: getEnv("PG_DATABASE", "gofish"),

		JWTPrivateKeyPath: os.Getenv("JWT_PRIVATE_KEY_PATH"),
		JWTPublicKeyPath:  os.Getenv("JWT_PUBLIC_KEY_PATH"),
	}

	if cfg.DeckTimeout, err = getEnvDuration("DECK_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.ThinkDelay, err = getEnvDuration("AI_THINK_DELAY", 1500*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.SnapshotInterval, err = getEnvDuration("SNAPSHOT_FLUSH_INTERVAL", 250*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.TokenExpiry, err = parseTokenExpiry(os.Getenv("TOKEN_EXPIRE_TIME")); err != nil {
		return nil, err
	}

	switch cfg.DeckProvider {
	case DeckHTTP, DeckLocal:
	default:
		return nil, fmt.Errorf("DECK_PROVIDER: unknown provider %q", cfg.DeckProvider)
	}
	switch cfg.SnapshotBackend {
	case BackendFile, BackendRedis, BackendPostgres, BackendSQLite, BackendNone:
	default:
		return nil, fmt.Errorf("SNAPSHOT_BACKEND: unknown backend %q", cfg.SnapshotBackend)
	}
	if (cfg.JWTPrivateKeyPath == "") != (cfg.JWTPublicKeyPath == "") {
		return nil, errors.New("JWT_PRIVATE_KEY_PATH and JWT_PUBLIC_KEY_PATH must be set together")
	}
	return cfg, nil
}

// PersistentKeys reports whether tokens are signed with keys loaded from disk.
func (c *Config) PersistentKeys() bool {
	return c.JWTPrivateKeyPath != ""
}

// PostgresDSN builds the pgx connection string from the POSTGRES_* and PG_* settings.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		c.PostgresUser, c.PostgresPassword, c.PostgresHost, c.PostgresPort, c.PostgresDatabase)
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// parseTokenExpiry accepts a Go duration, or "never", "0" or "" for no expiry.
func parseTokenExpiry(v string) (time.Duration, error) {
	if v == "" || v == "never" || v == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("TOKEN_EXPIRE_TIME: %w", err)
	}
	return d, nil
}

// getEnv reads an environment variable or returns a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt parses an environment variable as an integer, else returns the default.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return v
}

// getEnvDuration accepts a Go duration ("1.5s") or a bare number of milliseconds.
func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	if ms, err := strconv.Atoi(s); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
