package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/TanaseDoru/BookReviewSite-sub000/internal/auth"
	"github.com/TanaseDoru/BookReviewSite-sub000/internal/config"
	"github.com/TanaseDoru/BookReviewSite-sub000/internal/event"
	handler "github.com/TanaseDoru/BookReviewSite-sub000/internal/handler/http"
	"github.com/TanaseDoru/BookReviewSite-sub000/internal/repository/postgres"
	"github.com/TanaseDoru/BookReviewSite-sub000/internal/repository/redis"
	"github.com/TanaseDoru/BookReviewSite-sub000/internal/service"
	"github.com/TanaseDoru/BookReviewSite-sub000/migrations"
	"github.com/TanaseDoru/BookReviewSite-sub000/pkg/database"
	"github.com/TanaseDoru/BookReviewSite-sub000/pkg/health"
	pkgkafka "github.com/TanaseDoru/BookReviewSite-sub000/pkg/kafka"
	"github.com/TanaseDoru/BookReviewSite-sub000/pkg/tracing"
)

// ServiceName tags logs, metrics and traces.
const ServiceName = "catalog-service"

// App wires together all dependencies and runs the catalog service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *goredis.Client
	producer       *pkgkafka.Producer
	consumer       *pkgkafka.Consumer
	httpServer     *http.Server
	shutdownTracer func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	shutdownTracer, err := tracing.Init(ctx, cfg.Tracing, ServiceName, cfg.Version, cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, &cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.Postgres.Host),
		slog.Int("port", cfg.Postgres.Port),
		slog.String("database", cfg.Postgres.DBName),
	)

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, ServiceName); err != nil {
		logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}
	database.SetSlowQueryLogging(cfg.SlowQueryThreshold, logger)

	redisClient, err := database.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis", slog.String("addr", cfg.Redis.Addr()))

	kafkaProducer := pkgkafka.NewProducer(pkgkafka.ProducerConfig{
		Brokers:      cfg.KafkaBrokers,
		BatchSize:    cfg.KafkaBatchSize,
		BatchTimeout: cfg.KafkaBatchTimeout,
		Breaker:      cfg.KafkaBreaker,
	}, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Build the dependency graph.
	reviewRepo := postgres.NewReviewRepository(pool)
	bookRepo := postgres.NewBookRepository(pool)
	changeRepo := postgres.NewChangeRequestRepository(pool)
	notificationRepo := postgres.NewNotificationRepository(pool)

	events := event.NewProducer(kafkaProducer, logger)

	reviewService := service.NewReviewService(reviewRepo, events, logger)
	bookService := service.NewBookService(bookRepo, logger)
	changeService := service.NewChangeRequestService(changeRepo, bookRepo, events, events, logger)
	notificationService := service.NewNotificationService(notificationRepo, logger)

	consumer := event.NewNotificationConsumer(
		cfg.KafkaBrokers,
		event.NewNotificationHandler(notificationService, logger),
		redis.NewIdempotencyStore(redisClient, cfg.EventDedupTTL),
		logger,
	)

	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.Register("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	healthHandler.Register("kafka", kafkaProducer.Ping)

	// Tokens are issued by the identity service; this one only validates them.
	tokens := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, 0)

	router := handler.NewRouter(handler.RouterConfig{
		ServiceName:    ServiceName,
		Reviews:        reviewService,
		Books:          bookService,
		ChangeRequests: changeService,
		Notifications:  notificationService,
		Health:         healthHandler,
		Tokens:         tokens.Validator(),
		RateLimit:      cfg.RateLimit,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         logger,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redis:          redisClient,
		producer:       kafkaProducer,
		consumer:       consumer,
		httpServer:     httpServer,
		shutdownTracer: shutdownTracer,
	}, nil
}

// Run starts the HTTP server and the notification consumer, then blocks until
// ctx is canceled or the server fails.
func (a *App) Run(ctx context.Context) error {
	consumerCtx, stopConsumer := context.WithCancel(context.WithoutCancel(ctx))
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.consumer.Start(consumerCtx); err != nil {
			a.logger.Error("kafka consumer error", slog.String("error", err.Error()))
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
	}

	a.shutdown(stopConsumer, &wg)
	return runErr
}

// shutdown drains HTTP first so in-flight writes can still publish events,
// then stops the consumer and closes the stores.
func (a *App) shutdown(stopConsumer context.CancelFunc, consumers *sync.WaitGroup) {
	a.logger.Info("shutting down application...")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	stopConsumer()
	consumers.Wait()

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
	}
	if err := a.redis.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
	}
	a.pool.Close()

	if err := a.shutdownTracer(ctx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
}
