package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookvalley/internal/api"
	"bookvalley/internal/config"
	"bookvalley/internal/database"
	"bookvalley/internal/domain"
	"bookvalley/internal/events"
	"bookvalley/internal/logging"
	"bookvalley/internal/metrics"
	"bookvalley/internal/queue"
	"bookvalley/internal/repository"
	"bookvalley/internal/service"
	"bookvalley/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := initDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	redisClient := initRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	eventBus := events.NewEventBus()
	publisher := initEventWorker(ctx, cfg, eventBus, redisClient, logger)
	if publisher != nil {
		defer publisher.Close()
	}

	svc := service.NewReservationService(
		store,
		eventBus,
		worker.PolicyFromConfig(cfg.Reservation.Retry),
		cfg.Reservation.OperationTimeout,
		logging.Component(logger, "reservations"),
		service.WithQueryTables(cfg.API.QueryTables...),
	)

	httpServer := api.NewHTTPServer(cfg.API, svc, initRateLimiter(ctx, cfg, redisClient, logger), logging.Component(logger, "http"))
	httpServer.AddHealthCheck("database", store.PingContext)
	if redisClient != nil {
		httpServer.AddHealthCheck("redis", func(ctx context.Context) error { return repository.Ping(ctx, redisClient) })
	}

	startMetrics(ctx, cfg, logger)

	return startServer(ctx, httpServer, cfg, logger)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}

	return cfg, logging.Component(baseLogger, "api-main"), closer, nil
}

func initDatabase(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*database.Store, error) {
	store, err := database.Open(ctx, cfg.Database, logging.Component(logger, "database"))
	if err != nil {
		logger.Error().Err(err).Str("driver", cfg.Database.Driver).Msg("init database")
		return nil, err
	}

	if err := store.SyncRooms(ctx, cfg.Rooms); err != nil {
		_ = store.Close()
		logger.Error().Err(err).Msg("sync room inventory")
		return nil, err
	}
	logger.Info().Int("rooms", len(cfg.Rooms)).Str("driver", store.Driver()).Msg("database ready")
	return store, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

func initRateLimiter(ctx context.Context, cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.RateLimiter {
	memory := repository.NewMemoryRateLimiter()
	idle := 2 * cfg.API.RateLimit.Window
	if idle < time.Minute {
		idle = time.Minute
	}
	go memory.PruneEvery(ctx, idle, idle)

	if redisClient == nil {
		return memory
	}
	return repository.NewFailoverRateLimiter(repository.NewRedisRateLimiter(redisClient), memory, logging.Component(logger, "rate-limit"))
}

func initEventWorker(
	ctx context.Context,
	cfg *config.Config,
	bus *events.EventBus,
	redisClient *redis.Client,
	logger *zerolog.Logger,
) *queue.AMQPPublisher {
	if cfg.Events.AMQPURL == "" {
		logger.Info().Msg("events.amqp_url not set, reservation events stay in process")
		return nil
	}

	publisher, err := queue.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Queue, logging.Component(logger, "amqp"))
	if err != nil {
		logger.Warn().Err(err).Msg("amqp publisher init failed, continuing without event delivery")
		return nil
	}

	eventWorker := worker.NewEventWorker(publisher, redisClient, worker.PolicyFromConfig(cfg.Events.Retry), logging.Component(logger, "event-worker"))
	eventWorker.Subscribe(bus)
	if parked, err := eventWorker.DeadLetters(ctx); err != nil {
		logger.Warn().Err(err).Msg("read event dead-letter list")
	} else if len(parked) > 0 {
		logger.Warn().Int("events", len(parked)).Msg("undelivered reservation events in dead-letter list")
	}
	go eventWorker.Start(ctx)
	return publisher
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServer(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case serveErr = <-errCh:
		logger.Error().Err(serveErr).Msg("http server stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}

	logger.Info().Msg("API server stopped")
	return serveErr
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
