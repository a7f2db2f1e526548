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

	"fsaeinventory/internal/api"
	"fsaeinventory/internal/config"
	"fsaeinventory/internal/database"
	"fsaeinventory/internal/domain"
	"fsaeinventory/internal/events"
	"fsaeinventory/internal/google"
	"fsaeinventory/internal/logging"
	"fsaeinventory/internal/metrics"
	"fsaeinventory/internal/remote"
	"fsaeinventory/internal/repository"
	"fsaeinventory/internal/service"

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
	cfg, baseLogger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}
	logger := logging.Component(baseLogger, "server-main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := initRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	db, err := initJournal(cfg, baseLogger)
	if err != nil {
		return err
	}
	var journal domain.Journal
	if db != nil {
		defer db.Close()
		journal = db
	}

	store, err := initStore(ctx, cfg, redisClient, baseLogger)
	if err != nil {
		return err
	}

	eventBus := events.NewEventBus()
	if db != nil {
		eventBus.SubscribeAll(db.HandleEvent)
	}
	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		eventBus.SubscribeAll(metrics.HandleEvent)
	}

	inventory := service.NewInventoryService(
		store,
		initConfirmations(redisClient, baseLogger),
		eventBus,
		journal,
		service.Options{
			SampleItems:     cfg.Inventory.SampleItems,
			SampleOnFailure: cfg.Inventory.SampleOnFailure,
			ConfirmTTL:      cfg.Inventory.ConfirmTTL,
		},
		logging.Component(baseLogger, "inventory"),
	)

	res, err := inventory.Load(ctx)
	if err != nil {
		logger.Warn().Err(err).Str("source", res.Source).Msg("Initial inventory load failed")
	} else {
		logger.Info().Str("source", res.Source).Int("count", res.Count).Msg("Initial inventory loaded")
	}

	httpServer := api.NewHTTPServer(cfg.API, inventory, logging.Component(baseLogger, "http"))

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

	logger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}

	return cfg, logger, closer, nil
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

func initJournal(cfg *config.Config, logger *zerolog.Logger) (*database.DB, error) {
	if cfg.Journal.Path == "" {
		return nil, nil
	}
	db, err := database.NewDB(cfg.Journal.Path, logging.Component(logger, "journal"))
	if err != nil {
		return nil, fmt.Errorf("init journal: %w", err)
	}
	return db, nil
}

// initStore returns a nil store when no remote is configured; the service
// then runs on sample data.
func initStore(
	ctx context.Context,
	cfg *config.Config,
	redisClient *redis.Client,
	logger *zerolog.Logger,
) (domain.InventoryStore, error) {
	switch cfg.Store.Driver {
	case config.StoreEndpoint:
		client := remote.NewClient(cfg.Endpoint.URL, cfg.Endpoint.Timeout, remote.RetryPolicy{
			MaxRetries:    cfg.Endpoint.MaxRetries,
			InitialDelay:  cfg.Endpoint.InitialDelay,
			MaxDelay:      30 * time.Second,
			BackoffFactor: 2,
		}, logging.Component(logger, "endpoint"))
		if redisClient != nil && cfg.Endpoint.CacheTTL > 0 {
			client.UseRedisCache(redisClient, cfg.Endpoint.CacheTTL)
		}
		return client, nil

	case config.StoreSheets:
		sheetsStore, err := google.NewSheetsStore(ctx,
			cfg.Google.CredentialsFile,
			cfg.Google.SpreadsheetID,
			cfg.Google.SheetName,
			logging.Component(logger, "sheets"),
		)
		if err != nil {
			return nil, fmt.Errorf("init google sheets: %w", err)
		}
		if err := sheetsStore.TestConnection(ctx); err != nil {
			logger.Warn().Err(err).Msg("google sheets connection test failed")
		}
		return sheetsStore, nil

	default:
		logger.Warn().Msg("no inventory store configured, running on sample data")
		return nil, nil
	}
}

func initConfirmations(redisClient *redis.Client, logger *zerolog.Logger) domain.ConfirmationRepository {
	memory := repository.NewMemoryConfirmationRepository()
	if redisClient == nil {
		return memory
	}
	return repository.NewFailoverConfirmationRepository(
		repository.NewRedisConfirmationRepository(redisClient),
		memory,
		logging.Component(logger, "confirmations"),
	)
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

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

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("Inventory server started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown")
	}

	logger.Info().Msg("Inventory server stopped")
	return nil
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
