package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/dealdesk-backend/api/routes"
	"github.com/angelmondragon/dealdesk-backend/internal/deals"
	"github.com/angelmondragon/dealdesk-backend/pkg/config"
	"github.com/angelmondragon/dealdesk-backend/pkg/db"
	"github.com/angelmondragon/dealdesk-backend/pkg/logger"
	"github.com/angelmondragon/dealdesk-backend/pkg/metrics"
	"github.com/angelmondragon/dealdesk-backend/pkg/migrate"
	"github.com/angelmondragon/dealdesk-backend/pkg/outbox"
	"github.com/angelmondragon/dealdesk-backend/pkg/redis"
)

const serviceName = "dealdesk-api"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Fields:      map[string]any{"env": cfg.App.Env},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	// redis is optional; without it saves are only coalesced within this instance
	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(ctx, "redis not configured; cross-instance save lock and idempotent replay disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	adapter, err := deals.NewAdapter(cfg.Deals.AdapterName())
	if err != nil {
		logg.Error(ctx, "failed to select deal adapter", err)
		os.Exit(1)
	}

	params := deals.ServiceParams{
		Repo:     deals.NewRepository(dbClient.DB()),
		TxRunner: dbClient,
		Adapter:  adapter,
		Metrics:  metrics.NewDealSaveMetrics(registry),
		Logger:   logg,
		TaxRate:  cfg.Deals.TaxRateDecimal(),
		Location: cfg.Deals.Location(),
	}
	if redisClient != nil {
		params.Locker = deals.NewRedisSaveLocker(redisClient, cfg.Deals.SaveLockTTL)
	}
	if cfg.Outbox.Enabled {
		params.Events = outbox.NewService(outbox.NewRepository(dbClient.DB()), serviceName, logg)
	}
	dealsService, err := deals.NewService(params)
	if err != nil {
		logg.Error(ctx, "failed to create deals service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	serverCtx := logg.WithFields(ctx, map[string]any{
		"addr":    addr,
		"adapter": adapter.Name(),
		"events":  cfg.Outbox.Enabled,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, registry, dealsService),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(serverCtx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	exitCode := 0
	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(serverCtx, "api server stopped unexpectedly", err)
			exitCode = 1
		}
	case <-ctx.Done():
		logg.Info(serverCtx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	var closeErr error
	closeErr = multierr.Append(closeErr, server.Shutdown(shutdownCtx))
	if redisClient != nil {
		closeErr = multierr.Append(closeErr, redisClient.Close())
	}
	closeErr = multierr.Append(closeErr, dbClient.Close())
	if closeErr != nil {
		logg.Error(serverCtx, "error during shutdown", closeErr)
		exitCode = 1
	}
	cancel()
	stop()
	os.Exit(exitCode)
}
