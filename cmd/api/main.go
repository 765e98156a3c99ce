package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cimillas/order-ledger/internal/app"
	"github.com/cimillas/order-ledger/internal/config"
	"github.com/cimillas/order-ledger/internal/logging"
	"github.com/cimillas/order-ledger/internal/replenish"
	"github.com/cimillas/order-ledger/internal/storage/postgres"
	transporthttp "github.com/cimillas/order-ledger/internal/transport/http"
	"github.com/cimillas/order-ledger/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	startupTimeout  = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.EnvFile != "" {
		logger.Info("loaded env file", zap.String("path", cfg.EnvFile))
	}
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("parse database url: %w", err)
	}
	poolCfg.MaxConns = cfg.DBMaxConns

	pool, err := pgxpool.NewWithConfig(startupCtx, poolCfg)
	if err != nil {
		return fmt.Errorf("connect to db: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	replenishSvc := app.NewReplenishService(
		postgres.NewReplenishRepository(pool, cfg.LockTimeout),
		app.WithRefillThreshold(cfg.Replenish.Threshold),
		app.WithRefillQuantity(cfg.Replenish.Quantity),
	)
	workers := replenish.NewPool(replenishSvc, logger.Named("replenish"),
		replenish.WithWorkers(cfg.Replenish.Workers),
		replenish.WithQueueSize(cfg.Replenish.QueueSize),
		replenish.WithTaskTimeout(cfg.Replenish.TaskTimeout),
	)

	var dispatcher app.Dispatcher = workers
	consumeCtx, stopConsume := context.WithCancel(context.Background())
	defer stopConsume()
	consumeDone := make(chan struct{})

	if cfg.Replenish.Backend == config.ReplenishBackendRedis {
		client, err := replenish.NewRedisClient(startupCtx, cfg.Replenish.RedisURL)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()

		queue := replenish.NewRedisQueue(client, replenish.DefaultQueueKey, logger.Named("replenish"))
		defer queue.Close()
		dispatcher = queue

		go func() {
			defer close(consumeDone)
			if err := queue.Consume(consumeCtx, workers.Handle); err != nil {
				logger.Error("replenish consumer stopped", zap.Error(err))
			}
		}()
	} else {
		close(consumeDone)
	}
	logger.Info("replenishment ready",
		zap.String("backend", cfg.Replenish.Backend),
		zap.Int("workers", cfg.Replenish.Workers),
		zap.Int("threshold", cfg.Replenish.Threshold),
	)

	services := transporthttp.Services{
		Catalog: app.NewCatalogService(postgres.NewCatalogRepository(pool)),
		Users:   app.NewUserService(postgres.NewUserRepository(pool)),
		Ledger: app.NewLedgerService(
			postgres.NewLedgerRepository(pool, cfg.LockTimeout),
			app.WithDispatcher(dispatcher),
		),
		Orders: app.NewOrderService(postgres.NewOrderRepository(pool)),
		Admin:  app.NewAdminService(postgres.NewAdminRepository(pool)),
		DB:     pool,
	}
	if cfg.AdminToken == "" {
		logger.Info("admin routes disabled, ADMIN_TOKEN not set")
	}

	handler := transporthttp.NewRouter(transporthttp.RouterConfig{
		Logger:         logger.Named("http"),
		CORSOrigins:    cfg.CORSOrigins,
		RequestTimeout: cfg.RequestTimeout,
		AdminToken:     cfg.AdminToken,
	}, services)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("api listening", zap.String("addr", server.Addr))

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
		}
	case <-stopCtx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server shutdown error", zap.Error(err))
	}

	// Orders placed before shutdown may still be handing off refills.
	stopConsume()
	<-consumeDone
	if err := workers.Close(shutdownCtx); err != nil {
		logger.Warn("replenish workers did not drain", zap.Error(err))
	}
	logger.Info("server stopped", zap.Int64("refills_dropped", workers.Dropped()))
	return nil
}
