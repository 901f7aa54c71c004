package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	StoreDriver  string
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int

	PlatformFeeRate  decimal.Decimal
	StoreMaxAttempts int

	StatusSchedulerInterval time.Duration
	ReconcileInterval       time.Duration

	CORSAllowedOrigins []string

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string

	OTelEndpoint string
	ServiceName  string
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		StoreDriver:       getEnv("STORE_DRIVER", StoreDriverPostgres),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		JWTSecretKey:      os.Getenv("JWT_SECRET_KEY"),
		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),
		OTelEndpoint:      os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ServiceName:       getEnv("SERVICE_NAME", "tournament-wallet"),
	}

	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
		}
	case StoreDriverMemory:
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q (expected %s or %s)", cfg.StoreDriver, StoreDriverPostgres, StoreDriverMemory)
	}

	if cfg.JWTSecretKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}
	cfg.ServerPort = port

	cfg.PlatformFeeRate, err = decimal.NewFromString(getEnv("PLATFORM_FEE_RATE", "0.02"))
	if err != nil {
		return nil, fmt.Errorf("invalid PLATFORM_FEE_RATE environment variable: %w", err)
	}
	if cfg.PlatformFeeRate.IsNegative() || cfg.PlatformFeeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("PLATFORM_FEE_RATE must be in [0, 1), got %s", cfg.PlatformFeeRate)
	}

	cfg.StoreMaxAttempts, err = strconv.Atoi(getEnv("STORE_MAX_ATTEMPTS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid STORE_MAX_ATTEMPTS environment variable: %w", err)
	}
	if cfg.StoreMaxAttempts < 1 {
		return nil, fmt.Errorf("STORE_MAX_ATTEMPTS must be positive, got %d", cfg.StoreMaxAttempts)
	}

	if cfg.StatusSchedulerInterval, err = parseInterval("STATUS_SCHEDULER_INTERVAL", "30s"); err != nil {
		return nil, err
	}
	if cfg.ReconcileInterval, err = parseInterval("RECONCILE_INTERVAL", "10m"); err != nil {
		return nil, err
	}

	for _, origin := range strings.Split(getEnv("CORS_ALLOWED_ORIGINS", "*"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// parseInterval: нулевой интервал отключает соответствующую фоновую задачу.
func parseInterval(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %s", key, d)
	}
	return d, nil
}
