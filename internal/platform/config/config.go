package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr string

	// PostgresDSN selects the durable store. Empty means in-memory stores
	// (dev and tests only).
	PostgresDSN string

	Redis RedisConfig

	// ChallengeTTL bounds how long an issued wallet auth nonce stays valid.
	ChallengeTTL time.Duration
	// WalletSessionTTL bounds the JWT issued after a successful challenge.
	WalletSessionTTL time.Duration
	JWTSigningKey    string

	Kafka KafkaConfig
}

// RedisConfig holds connection settings for the optional Redis backend.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds settings for the audit event publisher. Empty brokers
// disables Kafka publishing (events still reach the audit store).
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:             envOr("MEDFUND_ADDR", ":8080"),
		PostgresDSN:      os.Getenv("MEDFUND_POSTGRES_DSN"),
		ChallengeTTL:     envDuration("MEDFUND_CHALLENGE_TTL", 5*time.Minute),
		WalletSessionTTL: envDuration("MEDFUND_WALLET_SESSION_TTL", 15*time.Minute),
		// Default for development only; must be overridden in production.
		JWTSigningKey: envOr("MEDFUND_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		Redis: RedisConfig{
			URL:          os.Getenv("MEDFUND_REDIS_URL"),
			PoolSize:     envInt("MEDFUND_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("MEDFUND_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("MEDFUND_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("MEDFUND_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("MEDFUND_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: splitNonEmpty(os.Getenv("MEDFUND_KAFKA_BROKERS")),
			Topic:   envOr("MEDFUND_KAFKA_AUDIT_TOPIC", "medfund.audit"),
		},
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

func splitNonEmpty(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
