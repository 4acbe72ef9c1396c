package config

import (
	"fmt"

	"inlet/internal/constants"
)

// ValidateStatic rejects configurations that can never work, before any
// connection is attempted.
func ValidateStatic(cfg *Config) error {
	if cfg.Webhook.Secret == "" {
		return fmt.Errorf("webhook.secret is required")
	}

	switch cfg.Database.Driver {
	case constants.DialectPostgres:
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required when driver is %q", constants.DialectPostgres)
		}
		if cfg.Database.Postgres.DBName == "" {
			return fmt.Errorf("database.postgres.dbname is required when driver is %q", constants.DialectPostgres)
		}
	case constants.DialectSQLite:
		if cfg.Database.SQLite.Path == "" {
			return fmt.Errorf("database.sqlite.path is required when driver is %q", constants.DialectSQLite)
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q",
			constants.DialectPostgres, constants.DialectSQLite, cfg.Database.Driver)
	}

	if err := validateBucket("rate_limit.webhook", cfg.RateLimit.Webhook); err != nil {
		return err
	}
	if err := validateBucket("rate_limit.api", cfg.RateLimit.API); err != nil {
		return err
	}

	if cfg.Webhook.BodyMaxBytes <= 0 {
		return fmt.Errorf("webhook.body_max_bytes must be positive, got %d", cfg.Webhook.BodyMaxBytes)
	}

	if cfg.DuplicateCache.Enabled {
		if cfg.Database.Redis.Host == "" {
			return fmt.Errorf("database.redis.host is required when duplicate_cache.enabled is true")
		}
		if cfg.DuplicateCache.TTLSeconds <= 0 {
			return fmt.Errorf("duplicate_cache.ttl_seconds must be positive, got %d", cfg.DuplicateCache.TTLSeconds)
		}
	}

	if cfg.Broker.Type != "" && cfg.Broker.Type != "kafka" {
		return fmt.Errorf("broker.type must be empty or %q, got %q", "kafka", cfg.Broker.Type)
	}
	if cfg.Broker.Type == "kafka" {
		if len(cfg.Broker.Kafka.Brokers) == 0 {
			return fmt.Errorf("broker.kafka.brokers is required when broker.type is kafka")
		}
		if cfg.Broker.Kafka.OutputTopic == "" {
			return fmt.Errorf("broker.kafka.output_topic is required when broker.type is kafka")
		}
	}

	return nil
}

func validateBucket(name string, b BucketConfig) error {
	if b.PerMinute <= 0 {
		return fmt.Errorf("%s.per_minute must be positive, got %v", name, b.PerMinute)
	}
	if b.Burst <= 0 {
		return fmt.Errorf("%s.burst must be positive, got %d", name, b.Burst)
	}
	return nil
}
