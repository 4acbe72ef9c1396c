package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"inlet/internal/broker"
	"inlet/internal/config"
	"inlet/internal/constants"
	"inlet/internal/ingest"
	"inlet/internal/logger"
	"inlet/internal/message"
	"inlet/internal/signature"
	"inlet/internal/stats"
	"inlet/pkg/bootstrap"
	"inlet/pkg/health"
	"inlet/pkg/metrics"
	"inlet/pkg/middleware"
	"inlet/pkg/migrations"
	"inlet/pkg/ratelimit"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type App struct {
	config         *config.Config
	logger         logger.Logger
	dbConnector    *bootstrap.DatabaseConnector
	db             *sql.DB
	dialect        string
	redisClient    *redis.Client
	producer       broker.Producer
	webhookLimiter *ratelimit.KeyedLimiter
	apiLimiter     *ratelimit.KeyedLimiter
	server         *http.Server
	router         *gin.Engine
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	return &App{
		config:      cfg,
		logger:      log,
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.initDatabase(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := a.initBroker(); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	if err := a.initRouter(); err != nil {
		return fmt.Errorf("failed to initialize router: %w", err)
	}

	if err := a.initServer(); err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	return nil
}

func (a *App) initDatabase(ctx context.Context) error {
	db, dialect, err := a.dbConnector.InitSQL(ctx)
	if err != nil {
		return err
	}

	if err := migrations.Run(db, dialect); err != nil {
		db.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	a.db = db
	a.dialect = dialect

	if a.config.DuplicateCache.Enabled {
		redisClient, err := a.dbConnector.InitRedis(ctx)
		if err != nil {
			a.logger.WarnwCtx(ctx, "Redis connection failed, duplicate cache disabled", "error", err)
		} else {
			a.redisClient = redisClient
		}
	}

	return nil
}

func (a *App) initBroker() error {
	producer, err := broker.NewProducer(a.config.Broker, a.logger)
	if err != nil {
		return err
	}
	a.producer = producer
	return nil
}

func (a *App) initRouter() error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware(a.logger))
	router.Use(middleware.LoggerMiddleware(a.logger))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())

	a.webhookLimiter = ratelimit.NewKeyedLimiter(ratelimit.Config{
		PerMinute:       a.config.RateLimit.Webhook.PerMinute,
		Burst:           a.config.RateLimit.Webhook.Burst,
		CleanupInterval: time.Duration(a.config.RateLimit.CleanupIntervalSeconds) * time.Second,
		MaxAge:          time.Duration(a.config.RateLimit.MaxAgeSeconds) * time.Second,
	})
	a.apiLimiter = ratelimit.NewKeyedLimiter(ratelimit.Config{
		PerMinute:       a.config.RateLimit.API.PerMinute,
		Burst:           a.config.RateLimit.API.Burst,
		CleanupInterval: time.Duration(a.config.RateLimit.CleanupIntervalSeconds) * time.Second,
		MaxAge:          time.Duration(a.config.RateLimit.MaxAgeSeconds) * time.Second,
	})

	store := a.buildStore()

	verifier := signature.NewVerifier([]byte(a.config.Webhook.Secret))
	ingestService := ingest.NewService(
		verifier,
		a.webhookLimiter,
		store,
		a.producer,
		a.config.Webhook,
		a.config.Broker,
		a.logger,
	)

	sigHeader := a.config.Webhook.SignatureHeader
	if sigHeader == "" {
		sigHeader = constants.DefaultSignatureHeader
	}
	ingestHandler := ingest.NewHandler(ingestService, sigHeader, a.logger)
	ingestHandler.RegisterRoutes(router)

	// Read endpoints share one limiter; the webhook path does its own
	// accounting inside the pipeline.
	api := router.Group("", ratelimit.Middleware(a.apiLimiter, "api"))

	queryService := message.NewQueryService(store)
	messageHandler := message.NewHandler(queryService, a.logger)
	messageHandler.RegisterRoutes(api)

	aggregator := stats.NewAggregator(store)
	statsHandler := stats.NewHandler(aggregator, a.logger)
	statsHandler.RegisterRoutes(api)

	metrics.RegisterIngestMetrics()
	metrics.RegisterHTTPMetrics()
	metrics.RegisterCircuitBreakerMetrics()
	metrics.RegisterBrokerMetrics()

	a.registerHealthRoutes(router)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	a.router = router
	return nil
}

func (a *App) buildStore() message.Store {
	var store message.Store = message.NewSQLStore(a.db, a.dialect)

	if a.redisClient != nil {
		ttl := time.Duration(a.config.DuplicateCache.TTLSeconds) * time.Second
		if ttl <= 0 {
			ttl = constants.DefaultCacheTTL
		}
		store = message.NewCachedStore(store, a.redisClient, ttl, a.logger)
	}

	store = message.NewBreakerStore(store, a.config.CircuitBreaker)
	return store
}

func (a *App) registerHealthRoutes(router *gin.Engine) {
	readyRegistry := health.NewCheckerRegistry()
	readyRegistry.Register(health.NewDatabaseChecker(a.db))
	readyRegistry.Register(health.NewWebhookSecretChecker(a.config.Webhook.Secret))
	if a.redisClient != nil {
		readyRegistry.Register(health.NewRedisChecker(a.redisClient))
	}

	// Liveness answers as long as the process serves requests.
	router.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": health.StatusHealthy})
	})

	router.GET("/health/ready", func(c *gin.Context) {
		h := readyRegistry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})
}

func (a *App) initServer() error {
	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  a.config.Server.ReadTimeoutSeconds * time.Second,
		WriteTimeout: a.config.Server.WriteTimeoutSeconds * time.Second,
	}
	return nil
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		a.logger.InfowCtx(ctx, "Server listening", "port", a.config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return a.Shutdown(ctx)
	case err := <-errChan:
		return err
	}
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.InfowCtx(ctx, "Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()

	var errs []error

	if a.server != nil {
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("producer close error: %w", err))
		}
	}

	if a.webhookLimiter != nil {
		a.webhookLimiter.Close()
	}
	if a.apiLimiter != nil {
		a.apiLimiter.Close()
	}

	dbErrs := a.dbConnector.ShutdownDatabases(a.redisClient, a.db)
	errs = append(errs, dbErrs...)

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	a.logger.InfowCtx(ctx, "Server exited successfully")
	return nil
}
