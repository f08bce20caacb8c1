package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/vytor/lingoflash/internal/logger"
)

// Remote drivers understood by the server.
const (
	RemoteDriverPostgres = "postgres"
	RemoteDriverMySQL    = "mysql"
	RemoteDriverSQLite   = "sqlite"
	RemoteDriverREST     = "rest"
)

type Config struct {
	Addr            string
	CacheDBPath     string
	RemoteDriver    string
	RemoteDSN       string
	RemoteURL       string
	RemoteAPIKey    string
	RemoteRateLimit int
	CacheTTL        time.Duration
	LogLevel        string
	SyncWorkerCount int
	SyncQueueSize   int
	ProbeInterval   time.Duration
	JWTSecret       string
}

// Load reads configuration from a .env file (if present) and environment variables,
// applying sensible defaults when values are missing or invalid.
func Load() Config {
	// Ignore error so the app still starts when .env is absent in production.
	_ = godotenv.Load()

	return Config{
		Addr:            envOr("ADDR", ":8080"),
		CacheDBPath:     envOr("CACHE_DB_PATH", "file:lingoflash-cache.db"),
		RemoteDriver:    strings.ToLower(envOr("REMOTE_DRIVER", RemoteDriverPostgres)),
		RemoteDSN:       envOr("REMOTE_DSN", ""),
		RemoteURL:       envOr("REMOTE_URL", ""),
		RemoteAPIKey:    envOr("REMOTE_API_KEY", ""),
		RemoteRateLimit: envIntOr("REMOTE_RATE_LIMIT", 10),
		CacheTTL:        envDurationOr("CACHE_TTL", 24*time.Hour),
		LogLevel:        envOr("LOG_LEVEL", "INFO"),
		SyncWorkerCount: envIntOr("SYNC_WORKER_COUNT", 1),
		SyncQueueSize:   envIntOr("SYNC_QUEUE_SIZE", 16),
		ProbeInterval:   envDurationOr("PROBE_INTERVAL", 30*time.Second),
		JWTSecret:       envOr("JWT_SECRET", ""),
	}
}

// Validate reports every configuration problem at once.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Addr) == "" {
		errs = append(errs, errors.New("ADDR cannot be empty"))
	}
	if strings.TrimSpace(c.CacheDBPath) == "" {
		errs = append(errs, errors.New("CACHE_DB_PATH cannot be empty"))
	}

	switch c.RemoteDriver {
	case RemoteDriverPostgres, RemoteDriverMySQL, RemoteDriverSQLite:
		if c.RemoteDSN == "" {
			errs = append(errs, fmt.Errorf("REMOTE_DSN is required for driver %q", c.RemoteDriver))
		}
	case RemoteDriverREST:
		if c.RemoteURL == "" {
			errs = append(errs, errors.New("REMOTE_URL is required for driver \"rest\""))
		}
	default:
		errs = append(errs, fmt.Errorf("REMOTE_DRIVER %q is not one of postgres, mysql, sqlite, rest", c.RemoteDriver))
	}

	if c.RemoteRateLimit <= 0 {
		errs = append(errs, fmt.Errorf("REMOTE_RATE_LIMIT must be positive, got %d", c.RemoteRateLimit))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_TTL must be positive, got %s", c.CacheTTL))
	}
	if _, ok := logger.LookupLevel(c.LogLevel); !ok {
		errs = append(errs, fmt.Errorf("LOG_LEVEL %q is not one of DEBUG, INFO, WARN, ERROR", c.LogLevel))
	}
	if c.SyncWorkerCount <= 0 {
		errs = append(errs, fmt.Errorf("SYNC_WORKER_COUNT must be positive, got %d", c.SyncWorkerCount))
	}
	if c.SyncQueueSize <= 0 {
		errs = append(errs, fmt.Errorf("SYNC_QUEUE_SIZE must be positive, got %d", c.SyncQueueSize))
	}
	if c.ProbeInterval < time.Second {
		errs = append(errs, fmt.Errorf("PROBE_INTERVAL must be at least 1s, got %s", c.ProbeInterval))
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 16 characters when set"))
	}

	return errors.Join(errs...)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Printf("invalid value for %s=%q, using default %d", key, v, def)
	}
	return def
}

func envDurationOr(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("invalid duration for %s=%q, using default %s", key, v, def)
	}
	return def
}
