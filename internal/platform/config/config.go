// Package config reads all runtime configuration from the environment so
// main stays lean. Every knob has a development default; production deploys
// override via env.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures the full service configuration.
type Server struct {
	Addr          string
	JWTSigningKey string

	// OwnerAccount seeds the registry owner on first start.
	OwnerAccount string

	// ProposalFee is the minimum deposit attached to a binding proposal,
	// in deposit units. Zero disables fee policy.
	ProposalFee int64

	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
}

// PostgresConfig selects the persistent store. An empty DSN runs the
// service on in-memory stores.
type PostgresConfig struct {
	DSN       string
	TxTimeout time.Duration
}

// RedisConfig selects the reverse-lookup cache. An empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig selects the event sink. No brokers means events go to the
// structured log instead.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// LookupCacheTTL bounds staleness of cached reverse lookups. Bindings are
// immutable once accepted, so the TTL only limits memory, not correctness.
var LookupCacheTTL = 24 * time.Hour

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := envOr("BINDERY_ADDR", ":8080")

	jwtSigningKey := os.Getenv("BINDERY_JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	var brokers []string
	if raw := os.Getenv("BINDERY_KAFKA_BROKERS"); raw != "" {
		brokers = strings.Split(raw, ",")
	}

	return Server{
		Addr:          addr,
		JWTSigningKey: jwtSigningKey,
		OwnerAccount:  envOr("BINDERY_OWNER", "registry.owner"),
		ProposalFee:   envInt64("BINDERY_PROPOSAL_FEE", 0),
		Postgres: PostgresConfig{
			DSN:       os.Getenv("BINDERY_POSTGRES_DSN"),
			TxTimeout: envDuration("BINDERY_POSTGRES_TX_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("BINDERY_REDIS_URL"),
			PoolSize:     envInt("BINDERY_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("BINDERY_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("BINDERY_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("BINDERY_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("BINDERY_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: brokers,
			Topic:   envOr("BINDERY_KAFKA_TOPIC", "registry.binding-events"),
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
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func envInt64(key string, fallback int64) int64 {
	v, err := strconv.ParseInt(os.Getenv(key), 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
