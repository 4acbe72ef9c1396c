package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"inlet/internal/config"
	"inlet/internal/constants"
	"inlet/internal/logger"
	"inlet/pkg/retry"
)

type DatabaseConnector struct {
	Config *config.Config
	Logger logger.Logger
}

func NewDatabaseConnector(cfg *config.Config, log logger.Logger) *DatabaseConnector {
	return &DatabaseConnector{
		Config: cfg,
		Logger: log,
	}
}

// InitSQL opens the configured SQL backend and waits for it to answer a
// ping, retrying with backoff so the service survives a database that is
// still starting. It returns the handle together with the driver dialect.
func (dc *DatabaseConnector) InitSQL(ctx context.Context) (*sql.DB, string, error) {
	var dsn, dialect string

	switch dc.Config.Database.Driver {
	case constants.DialectPostgres:
		dialect = constants.DialectPostgres
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			dc.Config.Database.Postgres.User,
			dc.Config.Database.Postgres.Password,
			dc.Config.Database.Postgres.Host,
			dc.Config.Database.Postgres.Port,
			dc.Config.Database.Postgres.DBName,
			dc.Config.Database.Postgres.SSLMode,
		)
	case constants.DialectSQLite:
		dialect = constants.DialectSQLite
		dsn = dc.Config.Database.SQLite.Path
	default:
		return nil, "", fmt.Errorf("unknown database driver: %s", dc.Config.Database.Driver)
	}

	db, err := sql.Open(dialect, dsn)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open database: %w", err)
	}

	if dialect == constants.DialectSQLite {
		// The driver does not tolerate concurrent writers on one file.
		db.SetMaxOpenConns(1)
	}

	policy := retry.Policy{
		MaxAttempts:     10,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2.0,
		MaxElapsedTime:  time.Minute,
	}
	err = retry.Retry(ctx, policy, func() error {
		return db.PingContext(ctx)
	})
	if err != nil {
		db.Close()
		return nil, "", fmt.Errorf("failed to ping database: %w", err)
	}

	dc.Logger.Infow("Database connected successfully", "driver", dialect)
	return db, dialect, nil
}

func (dc *DatabaseConnector) InitRedis(ctx context.Context) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", dc.Config.Database.Redis.Host, dc.Config.Database.Redis.Port),
		Password: dc.Config.Database.Redis.Password,
		DB:       dc.Config.Database.Redis.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	dc.Logger.Infow("Redis connected successfully")
	return rdb, nil
}

func (dc *DatabaseConnector) ShutdownDatabases(redis *redis.Client, db *sql.DB) []error {
	var errs []error

	if redis != nil {
		if err := redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close error: %w", err))
		}
	}

	if db != nil {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database close error: %w", err))
		}
	}

	return errs
}
