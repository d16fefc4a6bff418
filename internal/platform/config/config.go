package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr             string
	AuthorityAddress string
	JWTSigningKey    string
	JWTIssuer        string
	JWTAudience      string

	PostgresDSN string
	Redis       RedisConfig
	Kafka       KafkaConfig

	MetadataImageURI    string
	MetadataDefaultBase string
}

// RedisConfig captures the metadata cache connection settings.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig captures the event sink connection settings.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// MetadataCacheTTL bounds staleness of cached metadata documents.
var MetadataCacheTTL = 5 * time.Minute

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("SOULPASS_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	topic := os.Getenv("KAFKA_TOPIC")
	if topic == "" {
		topic = "soulpass.ledger.events"
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		brokers = strings.Split(raw, ",")
	}

	return Server{
		Addr:             addr,
		AuthorityAddress: os.Getenv("AUTHORITY_ADDRESS"),
		JWTSigningKey:    jwtSigningKey,
		JWTIssuer:        envOr("JWT_ISSUER", "soulpass"),
		JWTAudience:      envOr("JWT_AUDIENCE", "soulpass-api"),
		PostgresDSN:      os.Getenv("POSTGRES_DSN"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: brokers,
			Topic:   topic,
		},
		MetadataImageURI:    os.Getenv("METADATA_IMAGE_URI"),
		MetadataDefaultBase: os.Getenv("METADATA_DEFAULT_BASE"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
