// Package config builds runtime configuration from the environment so main
// stays lean.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Redis captures connection settings for the record cache.
type Redis struct {
	// URL is empty when Redis is not configured; the cache layer is skipped.
	URL          string        `env:"URL"`
	PoolSize     int           `env:"POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"3s"`
}

// Kafka captures the optional audit sink settings.
type Kafka struct {
	// Brokers is empty when audit events stay in-process only.
	Brokers []string `env:"BROKERS"`
	Topic   string   `env:"TOPIC" envDefault:"intake.audit"`
}

// Server is the top-level service configuration.
type Server struct {
	Addr string `env:"INTAKE_ADDR" envDefault:":8080"`

	// JWTSigningKey verifies bearer tokens minted by the hosted auth
	// provider. The default exists for local development only.
	JWTSigningKey string `env:"INTAKE_JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	JWTIssuer     string `env:"INTAKE_JWT_ISSUER" envDefault:"intake-auth"`
	JWTAudience   string `env:"INTAKE_JWT_AUDIENCE" envDefault:"intake-api"`

	// DatabaseURL is empty for the in-memory record store (dev, tests).
	DatabaseURL string `env:"INTAKE_DATABASE_URL"`

	// BillingWebhookSecret signs payment-processor webhook payloads.
	BillingWebhookSecret string `env:"INTAKE_BILLING_WEBHOOK_SECRET" envDefault:"dev-webhook-secret"`

	// RecordCacheTTL bounds staleness of the Redis read-through cache.
	RecordCacheTTL time.Duration `env:"INTAKE_RECORD_CACHE_TTL" envDefault:"30s"`

	Redis Redis `envPrefix:"INTAKE_REDIS_"`
	Kafka Kafka `envPrefix:"INTAKE_KAFKA_"`
}

// FromEnv parses the full server configuration from environment variables.
func FromEnv() (Server, error) {
	return env.ParseAs[Server]()
}
