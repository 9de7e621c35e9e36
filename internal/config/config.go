package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kirinyoku/seatline/internal/postgres"
	"github.com/kirinyoku/seatline/internal/redis"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Postgres  postgres.Config
	Redis     redis.Config
	RabbitMQ  RabbitMQConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Booking   BookingConfig
	LogLevel  slog.Level
}

type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
}

type StorageConfig struct {
	Driver string
	// TxRetries bounds how often a transaction that hit a serialization
	// failure is re-run.
	TxRetries int
}

type RabbitMQConfig struct {
	// URL is optional; broker events are off without it.
	URL string
}

type AuthConfig struct {
	JWTSecret string
}

type RateLimitConfig struct {
	// Claims is the number of claims a holder may make per Window. Zero
	// disables the limit.
	Claims int
	Window time.Duration
}

type CacheConfig struct {
	CatalogTTL      time.Duration
	DetailTTL       time.Duration
	AvailabilityTTL time.Duration
	IdempotencyTTL  time.Duration
}

type BookingConfig struct {
	MaxSeatsPerClaim int
}

func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	var (
		cfg Config
		err error
	)

	cfg.Server.Host = envString("SERVER_HOST", "localhost")
	if cfg.Server.Port, err = envInt("SERVER_PORT", 8080); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if cfg.Server.ShutdownTimeout, err = envDuration("SERVER_SHUTDOWN_TIMEOUT", 5*time.Second); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cfg.Storage.Driver = strings.ToLower(envString("STORAGE_DRIVER", DriverPostgres))
	switch cfg.Storage.Driver {
	case DriverPostgres:
		if cfg.Postgres, err = postgresConfig(); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if cfg.Storage.TxRetries, err = envInt("POSTGRES_TX_RETRIES", 3); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	case DriverMemory:
	default:
		return nil, fmt.Errorf("%s: unknown STORAGE_DRIVER %q", op, cfg.Storage.Driver)
	}

	cfg.Redis.Addr = os.Getenv("REDIS_ADDR")
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	if cfg.Redis.DB, err = envInt("REDIS_DB", 0); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cfg.RabbitMQ.URL = os.Getenv("RABBITMQ_URL")
	cfg.Auth.JWTSecret = os.Getenv("JWT_SECRET")

	if cfg.RateLimit.Claims, err = envInt("RATE_LIMIT_CLAIMS", 10); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if cfg.RateLimit.Window, err = envDuration("RATE_LIMIT_WINDOW", time.Minute); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if cfg.Cache.CatalogTTL, err = envDuration("CACHE_CATALOG_TTL", 10*time.Minute); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if cfg.Cache.DetailTTL, err = envDuration("CACHE_SCHEDULE_TTL", time.Minute); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if cfg.Cache.AvailabilityTTL, err = envDuration("CACHE_AVAILABILITY_TTL", 2*time.Second); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if cfg.Cache.IdempotencyTTL, err = envDuration("IDEMPOTENCY_TTL", 2*time.Hour); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if cfg.Booking.MaxSeatsPerClaim, err = envInt("MAX_SEATS_PER_CLAIM", 10); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if cfg.Booking.MaxSeatsPerClaim <= 0 {
		return nil, fmt.Errorf("%s: MAX_SEATS_PER_CLAIM must be positive", op)
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(envString("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("%s: invalid LOG_LEVEL: %w", op, err)
	}

	return &cfg, nil
}

func postgresConfig() (postgres.Config, error) {
	pg := postgres.Config{
		User:     os.Getenv("POSTGRES_USER"),
		Password: os.Getenv("POSTGRES_PASSWORD"),
		Name:     os.Getenv("POSTGRES_DB"),
		Host:     envString("POSTGRES_HOST", "localhost"),
		SSLMode:  envString("POSTGRES_SSLMODE", "disable"),
	}

	var err error
	if pg.Port, err = envInt("POSTGRES_PORT", 5432); err != nil {
		return pg, err
	}

	maxConns, err := envInt("POSTGRES_MAX_CONNS", 10)
	if err != nil {
		return pg, err
	}
	pg.MaxConns = int32(maxConns)

	switch {
	case pg.User == "":
		return pg, fmt.Errorf("missing POSTGRES_USER")
	case pg.Password == "":
		return pg, fmt.Errorf("missing POSTGRES_PASSWORD")
	case pg.Name == "":
		return pg, fmt.Errorf("missing POSTGRES_DB")
	}

	return pg, nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}

	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}

	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
