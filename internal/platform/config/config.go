package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration. Postgres, Redis, and Kafka are
// optional: an empty URL means the in-memory implementation is used.
type Server struct {
	Addr          string
	PostgresURL   string
	RedisURL      string
	KafkaBrokers  string
	JWTSigningKey string
	OwnerAddress  string

	// Escrow parties for the three managed escrow instances.
	EscrowDepositor   string
	EscrowBeneficiary string
	EscrowArbiter     string
	EscrowTokenID     int

	// InitialFee is the fee collector's starting fee.
	InitialFee int
}

// RedisConfig tunes the optional Redis connection.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("TESSERA_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default - must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:          addr,
		PostgresURL:   os.Getenv("TESSERA_POSTGRES_URL"),
		RedisURL:      os.Getenv("TESSERA_REDIS_URL"),
		KafkaBrokers:  os.Getenv("TESSERA_KAFKA_BROKERS"),
		JWTSigningKey: jwtSigningKey,
		OwnerAddress:  envStr("TESSERA_OWNER_ADDRESS", "tessera:owner"),

		EscrowDepositor:   envStr("TESSERA_ESCROW_DEPOSITOR", "tessera:dev:depositor"),
		EscrowBeneficiary: envStr("TESSERA_ESCROW_BENEFICIARY", "tessera:dev:beneficiary"),
		EscrowArbiter:     envStr("TESSERA_ESCROW_ARBITER", "tessera:dev:arbiter"),
		EscrowTokenID:     envInt("TESSERA_ESCROW_TOKEN_ID", 1),

		InitialFee: envInt("TESSERA_INITIAL_FEE", 10),
	}
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// RedisFromEnv builds the Redis tuning config with defaults.
func RedisFromEnv() RedisConfig {
	return RedisConfig{
		URL:          os.Getenv("TESSERA_REDIS_URL"),
		PoolSize:     envInt("TESSERA_REDIS_POOL_SIZE", 10),
		MinIdleConns: envInt("TESSERA_REDIS_MIN_IDLE", 2),
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

func envInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
