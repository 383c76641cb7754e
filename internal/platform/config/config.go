// Package config loads server configuration from environment variables.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"

	pstrings "signoff/pkg/platform/strings"
)

// Config is the full server configuration. Optional integrations (Redis,
// Kafka, Postgres) stay disabled when their connection settings are empty.
type Config struct {
	Addr       string `env:"SIGNOFF_ADDR"        envDefault:":8080"`
	DataDir    string `env:"SIGNOFF_DATA_DIR"    envDefault:"./data"`
	SamplesDir string `env:"SIGNOFF_SAMPLES_DIR"`

	Log       LogConfig
	Inference InferenceConfig
	Auth      AuthConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Postgres  PostgresConfig
}

// LogConfig controls the process-wide slog handler.
type LogConfig struct {
	Level  string `env:"SIGNOFF_LOG_LEVEL"  envDefault:"info"`
	Format string `env:"SIGNOFF_LOG_FORMAT" envDefault:"json"`
}

// InferenceConfig points at the vision model backend. Endpoint and Model
// fall back to the inference client's built-in defaults when empty.
type InferenceConfig struct {
	APIKey   string `env:"ANTHROPIC_API_KEY"`
	Endpoint string `env:"SIGNOFF_INFERENCE_ENDPOINT"`
	Model    string `env:"SIGNOFF_INFERENCE_MODEL"`
}

// AuthConfig drives token issuance for the JSON API. ClientsJSON is a JSON
// object mapping client IDs to bcrypt secret hashes; when empty the API
// accepts no credentials and protected routes reject every request.
type AuthConfig struct {
	SigningKey  string        `env:"SIGNOFF_JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	Issuer      string        `env:"SIGNOFF_JWT_ISSUER"      envDefault:"signoff"`
	TokenTTL    time.Duration `env:"SIGNOFF_JWT_TTL"         envDefault:"1h"`
	ClientsJSON string        `env:"SIGNOFF_AUTH_CLIENTS"`
}

// RedisConfig configures the verification result cache. An empty URL
// disables caching.
type RedisConfig struct {
	URL          string        `env:"SIGNOFF_REDIS_URL"`
	PoolSize     int           `env:"SIGNOFF_REDIS_POOL_SIZE"      envDefault:"10"`
	MinIdleConns int           `env:"SIGNOFF_REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"SIGNOFF_REDIS_DIAL_TIMEOUT"   envDefault:"5s"`
	ReadTimeout  time.Duration `env:"SIGNOFF_REDIS_READ_TIMEOUT"   envDefault:"3s"`
	WriteTimeout time.Duration `env:"SIGNOFF_REDIS_WRITE_TIMEOUT"  envDefault:"3s"`
	CacheTTL     time.Duration `env:"SIGNOFF_REDIS_CACHE_TTL"      envDefault:"24h"`
}

// KafkaConfig configures the audit event stream. Empty brokers disable it.
type KafkaConfig struct {
	Brokers    []string `env:"SIGNOFF_KAFKA_BROKERS"     envSeparator:","`
	AuditTopic string   `env:"SIGNOFF_KAFKA_AUDIT_TOPIC" envDefault:"signoff.audit"`
}

// PostgresConfig configures the durable audit store. An empty URL keeps
// audit events in memory only.
type PostgresConfig struct {
	URL string `env:"SIGNOFF_POSTGRES_URL"`
}

// Load populates Config from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.SamplesDir == "" {
		cfg.SamplesDir = filepath.Join(cfg.DataDir, "invoice")
	}
	// Broker lists pasted into env vars tend to carry stray spaces and
	// repeated entries; an empty list after cleanup keeps the stream disabled.
	cfg.Kafka.Brokers = pstrings.DedupeAndTrim(cfg.Kafka.Brokers)
	return cfg, nil
}
