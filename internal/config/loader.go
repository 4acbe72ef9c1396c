package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"inlet/internal/constants"
)

func LoadConfig(configFile string) (*Config, error) {
	viper.Reset()

	viper.SetConfigType("yaml")
	viper.SetConfigFile(configFile)

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	bindEnvVariables()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func bindEnvVariables() {
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout_seconds", "SERVER_READ_TIMEOUT_SECONDS")
	viper.BindEnv("server.write_timeout_seconds", "SERVER_WRITE_TIMEOUT_SECONDS")

	viper.BindEnv("database.driver", "DATABASE_DRIVER")
	viper.BindEnv("database.postgres.host", "DATABASE_POSTGRES_HOST")
	viper.BindEnv("database.postgres.port", "DATABASE_POSTGRES_PORT")
	viper.BindEnv("database.postgres.user", "DATABASE_POSTGRES_USER")
	viper.BindEnv("database.postgres.password", "DATABASE_POSTGRES_PASSWORD")
	viper.BindEnv("database.postgres.dbname", "DATABASE_POSTGRES_DBNAME")
	viper.BindEnv("database.postgres.sslmode", "DATABASE_POSTGRES_SSLMODE")
	viper.BindEnv("database.sqlite.path", "DATABASE_SQLITE_PATH")

	viper.BindEnv("database.redis.host", "DATABASE_REDIS_HOST")
	viper.BindEnv("database.redis.port", "DATABASE_REDIS_PORT")
	viper.BindEnv("database.redis.password", "DATABASE_REDIS_PASSWORD")
	viper.BindEnv("database.redis.db", "DATABASE_REDIS_DB")

	viper.BindEnv("webhook.secret", "WEBHOOK_SECRET")
	viper.BindEnv("webhook.signature_header", "WEBHOOK_SIGNATURE_HEADER")
	viper.BindEnv("webhook.body_max_bytes", "WEBHOOK_BODY_MAX_BYTES")

	viper.BindEnv("broker.type", "BROKER_TYPE")
	viper.BindEnv("broker.kafka.brokers", "BROKER_KAFKA_BROKERS")
	viper.BindEnv("broker.kafka.output_topic", "BROKER_KAFKA_OUTPUT_TOPIC")

	viper.BindEnv("logging.level", "LOGGING_LEVEL")
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("database.driver", constants.DialectPostgres)
	viper.SetDefault("database.postgres.sslmode", "disable")
	viper.SetDefault("webhook.signature_header", constants.DefaultSignatureHeader)
	viper.SetDefault("webhook.body_max_bytes", constants.DefaultBodyMaxBytes)
	viper.SetDefault("rate_limit.webhook.per_minute", float64(constants.DefaultWebhookPerMinute))
	viper.SetDefault("rate_limit.webhook.burst", constants.DefaultWebhookPerMinute)
	viper.SetDefault("rate_limit.api.per_minute", float64(constants.DefaultAPIPerMinute))
	viper.SetDefault("rate_limit.api.burst", constants.DefaultAPIPerMinute)
	viper.SetDefault("rate_limit.cleanup_interval_seconds", 300)
	viper.SetDefault("rate_limit.max_age_seconds", 600)
	viper.SetDefault("duplicate_cache.ttl_seconds", int(constants.DefaultCacheTTL.Seconds()))
	viper.SetDefault("logging.level", "info")
}

func applyEnvOverrides(cfg *Config) error {
	if brokersEnv := viper.GetString("BROKER_KAFKA_BROKERS"); brokersEnv != "" {
		brokers := strings.Split(brokersEnv, ",")
		for i := range brokers {
			brokers[i] = strings.TrimSpace(brokers[i])
		}
		if len(brokers) > 0 && brokers[0] != "" {
			cfg.Broker.Kafka.Brokers = brokers
		}
	}

	return nil
}
