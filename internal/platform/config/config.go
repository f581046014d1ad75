// Package config builds runtime configuration from environment variables so
// main stays lean. Every knob has a development default; production deploys
// override via CERTVERIFY_* variables.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the top-level runtime configuration.
type Config struct {
	Addr          string
	AdminToken    string
	JWTSigningKey string
	JWTIssuer     string

	DatabaseURL string

	Redis RedisConfig

	Extraction ExtractionConfig

	Docstore DocstoreConfig

	// VisibilityCacheTTL bounds how long public share/portfolio projections
	// stay cached. Verified records are immutable, so staleness only delays
	// the appearance of newly verified certificates.
	VisibilityCacheTTL time.Duration
}

// RedisConfig configures the optional redis cache. An empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// ExtractionConfig points at the OCR/verification service.
type ExtractionConfig struct {
	BaseURL string
	Timeout time.Duration
}

// DocstoreConfig configures S3-compatible blob storage for uploaded
// documents. An empty endpoint selects the in-memory store (dev only).
type DocstoreConfig struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	Bucket     string
	Region     string
	UseSSL     bool
	PresignTTL time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Addr:          envOr("CERTVERIFY_ADDR", ":8080"),
		AdminToken:    os.Getenv("CERTVERIFY_ADMIN_TOKEN"),
		JWTSigningKey: envOr("CERTVERIFY_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:     envOr("CERTVERIFY_JWT_ISSUER", "certverify"),
		DatabaseURL:   os.Getenv("CERTVERIFY_DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("CERTVERIFY_REDIS_URL"),
			PoolSize:     envInt("CERTVERIFY_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("CERTVERIFY_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("CERTVERIFY_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("CERTVERIFY_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("CERTVERIFY_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Extraction: ExtractionConfig{
			BaseURL: envOr("CERTVERIFY_EXTRACTION_URL", "http://localhost:8000"),
			Timeout: envDuration("CERTVERIFY_EXTRACTION_TIMEOUT", 30*time.Second),
		},
		Docstore: DocstoreConfig{
			Endpoint:   os.Getenv("CERTVERIFY_S3_ENDPOINT"),
			AccessKey:  os.Getenv("CERTVERIFY_S3_ACCESS_KEY"),
			SecretKey:  os.Getenv("CERTVERIFY_S3_SECRET_KEY"),
			Bucket:     envOr("CERTVERIFY_S3_BUCKET", "certificates"),
			Region:     envOr("CERTVERIFY_S3_REGION", "us-east-1"),
			UseSSL:     os.Getenv("CERTVERIFY_S3_USE_SSL") == "true",
			PresignTTL: envDuration("CERTVERIFY_S3_PRESIGN_TTL", 15*time.Minute),
		},
		VisibilityCacheTTL: envDuration("CERTVERIFY_VISIBILITY_CACHE_TTL", 5*time.Minute),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
