package config

import (
	"fmt"

	pkgconfig "github.com/kolamcraft/catalog/pkg/config"
	"github.com/kolamcraft/catalog/pkg/validator"
)

// Auth provider selection.
const (
	AuthProviderSupabase = "supabase"
	AuthProviderJWT      = "jwt"
)

// Storage backend selection.
const (
	StorageBackendSupabase = "supabase"
	StorageBackendMemory   = "memory"
)

// Config holds all configuration for the catalog service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development" validate:"oneof=development staging production"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort     int    `env:"PORT" envDefault:"5000"`
	ClientOrigin string `env:"CLIENT_URL" envDefault:"http://localhost:5173"`

	// Administrator allow-list; emails permitted to perform writes.
	AdminEmails []string `env:"ADMIN_EMAILS" envSeparator:"," validate:"min=1,dive,email"`

	// Identity verification
	AuthProvider       string `env:"AUTH_PROVIDER" envDefault:"supabase" validate:"oneof=supabase jwt"`
	SupabaseURL        string `env:"SUPABASE_URL" envDefault:""`
	SupabaseAnonKey    string `env:"SUPABASE_ANON_KEY" envDefault:""`
	SupabaseServiceKey string `env:"SUPABASE_SERVICE_KEY" envDefault:""`
	JWTSecret          string `env:"JWT_SECRET" envDefault:""`

	// Optional Redis-backed verification cache.
	AuthCacheEnabled    bool   `env:"AUTH_CACHE_ENABLED" envDefault:"false"`
	AuthCacheTTLSeconds int    `env:"AUTH_CACHE_TTL_SECONDS" envDefault:"60"`
	RedisHost           string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort           int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword       string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB             int    `env:"REDIS_DB" envDefault:"0"`

	// Image storage
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"supabase" validate:"oneof=supabase memory"`
	StorageBucket  string `env:"STORAGE_BUCKET" envDefault:"product-images"`
	// BaseURL for image links served by the memory backend.
	BaseURL string `env:"BASE_URL" envDefault:""`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"catalog"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"catalog_secret"`
	PostgresDB   string `env:"POSTGRES_DB" envDefault:"catalog_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Write-route rate limiting, per client IP.
	RateLimitRPS   int `env:"RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst int `env:"RATE_LIMIT_BURST" envDefault:"20"`

	// Cache-Control max-age for public read endpoints, in seconds.
	CacheMaxAge int `env:"CACHE_MAX_AGE" envDefault:"0"`

	// Tracing
	OtelEnabled     bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OtelEndpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OtelSampleRatio float64 `env:"OTEL_SAMPLE_RATIO" envDefault:"1.0"`
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load catalog config: %w", err)
	}
	if err := validator.Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate catalog config: %w", err)
	}

	switch cfg.AuthProvider {
	case AuthProviderSupabase:
		if cfg.SupabaseURL == "" || cfg.SupabaseAnonKey == "" {
			return nil, fmt.Errorf("SUPABASE_URL and SUPABASE_ANON_KEY are required when AUTH_PROVIDER=supabase")
		}
	case AuthProviderJWT:
		if cfg.JWTSecret == "" {
			return nil, fmt.Errorf("JWT_SECRET is required when AUTH_PROVIDER=jwt")
		}
	}

	if cfg.StorageBackend == StorageBackendSupabase {
		if cfg.SupabaseURL == "" || cfg.SupabaseServiceKey == "" {
			return nil, fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY are required when STORAGE_BACKEND=supabase")
		}
	}

	return cfg, nil
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
