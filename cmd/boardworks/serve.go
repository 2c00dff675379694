package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/boardworks/boardworks/internal/app"
	"github.com/boardworks/boardworks/internal/customers"
	"github.com/boardworks/boardworks/internal/invoices"
	"github.com/boardworks/boardworks/internal/invoices/export"
	"github.com/boardworks/boardworks/internal/observability"
	"github.com/boardworks/boardworks/internal/platform/cache"
	"github.com/boardworks/boardworks/internal/platform/db"
	"github.com/boardworks/boardworks/internal/settings"
	"github.com/boardworks/boardworks/jobs"
	"github.com/boardworks/boardworks/report"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, serve)
		},
	}
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN, db.PoolConfig{MaxConns: cfg.PGMaxConns, MaxConnLifetime: cfg.PGMaxConnLife})
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	if cfg.AutoMigrate {
		applied, err := db.Migrate(ctx, pool)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info("migrations applied", slog.Any("versions", applied))
	}

	var redisClient *redis.Client
	redisClient, err = cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Warn("redis unavailable, statistics cache disabled", slog.Any("error", err))
		redisClient = nil
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()
	loc := cfg.Location()

	settingsService := settings.NewService(settings.NewRepository(pool), logger)
	customerService := customers.NewService(customers.NewRepository(pool))
	invoiceService := invoices.NewService(invoices.NewRepository(pool), customerService, settingsService, invoices.ServiceConfig{
		Logger:   logger,
		Cache:    invoices.NewStatsCache(redisClient, cfg.StatsCacheTTL),
		Location: loc,
		Recorder: metrics,
	})

	reportClient := report.NewClient(cfg.GotenbergURL, cfg.GotenbergTimeout)
	exporter, err := export.NewExporter(reportClient, settingsService)
	if err != nil {
		return fmt.Errorf("init invoice exporter: %w", err)
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Metrics:          metrics,
		CustomersHandler: customers.NewHandler(logger, customerService),
		SettingsHandler:  settings.NewHandler(logger, settingsService),
		InvoicesHandler:  invoices.NewHandler(logger, invoiceService, exporter, loc),
		JobHandler:       jobs.NewHandler(inspector, logger),
		ReportHandler:    report.NewHandler(reportClient, logger),
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: cfg.AppReadTimeout,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("timezone", loc.String()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
