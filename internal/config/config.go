package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv                 string
	Port                   string
	DatabaseURL            string
	RedisURL               string
	CORSAllowedOrigins     []string
	PromotionsFile         string
	BookCacheTTL           time.Duration
	IdempotencyTTL         time.Duration
	CheckoutRateLimit      int
	CheckoutRateWindow     time.Duration
	RunMigrations          bool
	HTTPReadTimeout        time.Duration
	HTTPWriteTimeout       time.Duration
	ShutdownTimeout        time.Duration
	SecurityHeadersEnabled bool
	TrustProxyHeaders      bool
	MaxBodyBytes           int64
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:                 valueOrDefault(k.String("APP_ENV"), "development"),
		Port:                   valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:            strings.TrimSpace(k.String("DATABASE_URL")),
		RedisURL:               strings.TrimSpace(k.String("REDIS_URL")),
		CORSAllowedOrigins:     splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		PromotionsFile:         valueOrDefault(k.String("PROMOTIONS_FILE"), "config/promotions.yaml"),
		BookCacheTTL:           parseDuration(k.String("BOOK_CACHE_TTL"), "5m"),
		IdempotencyTTL:         parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		CheckoutRateLimit:      parseInt(k.String("CHECKOUT_RATE_LIMIT"), 60),
		CheckoutRateWindow:     parseDuration(k.String("CHECKOUT_RATE_WINDOW"), "1m"),
		RunMigrations:          parseBoolDefault(k.String("RUN_MIGRATIONS"), true),
		HTTPReadTimeout:        parseDuration(k.String("HTTP_READ_TIMEOUT"), "10s"),
		HTTPWriteTimeout:       parseDuration(k.String("HTTP_WRITE_TIMEOUT"), "15s"),
		ShutdownTimeout:        parseDuration(k.String("SHUTDOWN_TIMEOUT"), "15s"),
		SecurityHeadersEnabled: parseBoolDefault(k.String("SECURITY_HEADERS_ENABLED"), true),
		TrustProxyHeaders:      parseBoolDefault(k.String("TRUST_PROXY_HEADERS"), false),
		MaxBodyBytes:           int64(parseInt(k.String("MAX_BODY_BYTES"), 1<<20)),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.CheckoutRateLimit < 0 {
		return nil, errors.New("CHECKOUT_RATE_LIMIT cannot be negative")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// IsProduction reports whether the service runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.AppEnv), "production")
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
