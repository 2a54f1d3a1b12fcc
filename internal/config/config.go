// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN used for identity, session, and audit storage.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// SessionStore selects the session store backend: "postgres" or "redis".
	SessionStore string `mapstructure:"SESSION_STORE"`
	// RedisAddr is the Redis address (host:port); required when SESSION_STORE is redis.
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	// RedisPassword is the Redis password; empty for unauthenticated Redis.
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	// SessionTTL is the session lifetime (e.g. "168h" = 7 days).
	SessionTTL string `mapstructure:"SESSION_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// GoogleClientID is the Google OAuth2 client ID. Federated login via Google is disabled when empty.
	GoogleClientID string `mapstructure:"GOOGLE_CLIENT_ID"`
	// GoogleClientSecret is the Google OAuth2 client secret.
	GoogleClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	// GoogleRedirectURL is the OAuth2 redirect URL registered with Google.
	GoogleRedirectURL string `mapstructure:"GOOGLE_REDIRECT_URL"`
	// FederatedIssuerKey is a PEM-encoded public key (RSA or ECDSA) or path to file for the
	// static assertion verifier (dev/offline federated login). Disabled when empty.
	FederatedIssuerKey string `mapstructure:"FEDERATED_ISSUER_KEY"`
	// FederatedAudience is the aud claim expected by the static assertion verifier.
	FederatedAudience string `mapstructure:"FEDERATED_AUDIENCE"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// Telemetry (optional). When Kafka brokers are set, the auth service emits auth events to Kafka.
	// AuthEventsKafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	AuthEventsKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// AuthEventsKafkaTopic is the Kafka topic for auth events (default combo-auth-events).
	AuthEventsKafkaTopic string `mapstructure:"AUTH_EVENTS_KAFKA_TOPIC"`
	// OTLPEndpoint is the OTLP gRPC endpoint for traces and metrics; telemetry is a no-op when empty.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP export even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`

	// Worker-only: Loki URL for the auth-event worker to push logs (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the auth-event worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("SESSION_STORE", "postgres")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("SESSION_TTL", "168h") // 7d
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("GOOGLE_CLIENT_ID", "")
	v.SetDefault("GOOGLE_CLIENT_SECRET", "")
	v.SetDefault("GOOGLE_REDIRECT_URL", "")
	v.SetDefault("FEDERATED_ISSUER_KEY", "")
	v.SetDefault("FEDERATED_AUDIENCE", "combo-auth")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("AUTH_EVENTS_KAFKA_TOPIC", "combo-auth-events")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "combo-auth-events-worker")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	switch cfg.SessionStore {
	case "postgres":
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, errors.New("config: REDIS_ADDR must be set when SESSION_STORE=redis")
		}
	default:
		return nil, errors.New("config: SESSION_STORE must be postgres or redis")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	return &cfg, nil
}

// TTL parses SessionTTL as a time.Duration. Returns 168h (7 days) if unset or invalid.
func (c *Config) TTL() time.Duration {
	d, err := time.ParseDuration(c.SessionTTL)
	if err != nil || d <= 0 {
		return 168 * time.Hour
	}
	return d
}

// GoogleEnabled reports whether the Google federated login provider is configured.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

// AuthEventsKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if event emission is enabled (non-empty list) and to create the producer.
func (c *Config) AuthEventsKafkaBrokersList() []string {
	if c == nil || c.AuthEventsKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.AuthEventsKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
