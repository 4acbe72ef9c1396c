package config

import (
	"time"
)

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Webhook        WebhookConfig        `mapstructure:"webhook"`
	RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`
	DuplicateCache DuplicateCacheConfig `mapstructure:"duplicate_cache"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Broker         BrokerConfig         `mapstructure:"broker"`
	Logging        LoggingConfig        `mapstructure:"logging"`
}

type ServerConfig struct {
	Port                int           `mapstructure:"port"`
	ReadTimeoutSeconds  time.Duration `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds time.Duration `mapstructure:"write_timeout_seconds"`
}

type DatabaseConfig struct {
	Driver   string         `mapstructure:"driver"` // "postgres" or "sqlite3"
	Postgres PostgresConfig `mapstructure:"postgres"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type WebhookConfig struct {
	Secret          string `mapstructure:"secret"`
	SignatureHeader string `mapstructure:"signature_header"`
	BodyMaxBytes    int    `mapstructure:"body_max_bytes"`
}

type RateLimitConfig struct {
	Webhook                BucketConfig `mapstructure:"webhook"`
	API                    BucketConfig `mapstructure:"api"`
	CleanupIntervalSeconds int          `mapstructure:"cleanup_interval_seconds"`
	MaxAgeSeconds          int          `mapstructure:"max_age_seconds"`
}

type BucketConfig struct {
	PerMinute float64 `mapstructure:"per_minute"`
	Burst     int     `mapstructure:"burst"`
}

type DuplicateCacheConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	TTLSeconds int  `mapstructure:"ttl_seconds"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

type BrokerConfig struct {
	Type  string      `mapstructure:"type"` // "" disables fan-out
	Kafka KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers     []string `mapstructure:"brokers"`
	OutputTopic string   `mapstructure:"output_topic"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}
