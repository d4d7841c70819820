package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	RedisURL    string

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	CORSAllowedOrigins []string

	StorageBaseURL   string
	StorageAPIKey    string
	SignedURLTTL     time.Duration
	PaymentBaseURL   string
	PaymentAPIKey    string
	PaymentReturnURL string

	CatalogCacheTTL     time.Duration
	CatalogDefaultLimit int
	CatalogMaxLimit     int
	CartTTL             time.Duration
	WizardDraftTTL      time.Duration
	IdempotencyTTL      time.Duration

	RateLimit string

	CurrencyCode string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:      valueOrDefault(k.String("APP_ENV"), "development"),
		Port:        valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL: k.String("DATABASE_URL"),
		RedisURL:    k.String("REDIS_URL"),

		JWTSecret:   k.String("JWT_SECRET"),
		JWTIssuer:   strings.TrimSpace(k.String("JWT_ISSUER")),
		JWTAudience: strings.TrimSpace(k.String("JWT_AUDIENCE")),

		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		StorageBaseURL:   strings.TrimSpace(k.String("STORAGE_BASE_URL")),
		StorageAPIKey:    k.String("STORAGE_API_KEY"),
		SignedURLTTL:     parseDuration(k.String("SIGNED_URL_TTL"), "15m"),
		PaymentBaseURL:   strings.TrimSpace(k.String("PAYMENT_BASE_URL")),
		PaymentAPIKey:    k.String("PAYMENT_API_KEY"),
		PaymentReturnURL: strings.TrimSpace(k.String("PAYMENT_RETURN_URL")),

		CatalogCacheTTL:     parseDuration(k.String("CATALOG_CACHE_TTL"), "60s"),
		CatalogDefaultLimit: intOrDefault(k.Int("CATALOG_DEFAULT_LIMIT"), 20),
		CatalogMaxLimit:     intOrDefault(k.Int("CATALOG_MAX_LIMIT"), 100),
		CartTTL:             parseDuration(k.String("CART_TTL"), "168h"),
		WizardDraftTTL:      parseDuration(k.String("WIZARD_DRAFT_TTL"), "24h"),
		IdempotencyTTL:      parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),

		RateLimit: valueOrDefault(k.String("RATE_LIMIT"), "120-M"),

		CurrencyCode: valueOrDefault(k.String("CURRENCY_CODE"), "EUR"),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
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
		return value
	}
	return fallback
}

func intOrDefault(value, fallback int) int {
	if value > 0 {
		return value
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

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(overrides map[string]string) (*Config, error) {
	original := make(map[string]string, len(overrides))
	for key := range overrides {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, overrides[key]); err != nil {
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
