package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/stockward/stockward/internal/alerts"
	"github.com/stockward/stockward/internal/app"
	"github.com/stockward/stockward/internal/auth"
	"github.com/stockward/stockward/internal/ledger"
	"github.com/stockward/stockward/internal/observability"
	"github.com/stockward/stockward/internal/platform/cache"
	"github.com/stockward/stockward/internal/platform/db"
	"github.com/stockward/stockward/internal/products"
	"github.com/stockward/stockward/internal/reconcile"
	"github.com/stockward/stockward/internal/shared"
	"github.com/stockward/stockward/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.DBMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Warn("redis unavailable, stats cache disabled", slog.Any("error", err))
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(pool)

	tokens := auth.NewTokenManager(cfg.TokenSecret, cfg.TokenTTL)
	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, tokens)
	authHandler := auth.NewHandler(logger, authService)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	sinks := []alerts.NotificationSink{
		alerts.NewLogSink(logger),
		alerts.NewEmailSink(authService, jobClient),
	}
	if cfg.MarketplaceURL != "" {
		sinks = append(sinks, alerts.NewMarketplaceSink(cfg.MarketplaceURL, http.DefaultClient))
	}
	dispatcher := alerts.NewDispatcher(cfg.AlertTimeout, logger, metrics, sinks...)

	productRepo := products.NewRepository(pool)
	productService := products.NewService(productRepo, auditLogger, logger)
	productHandler := products.NewHandler(logger, productService)

	ledgerRepo := ledger.NewRepository(pool)
	statsCache := ledger.NewStatsCache(redisClient, 10*time.Minute)
	ledgerService := ledger.NewService(ledgerRepo, dispatcher, auditLogger, metrics, statsCache, logger)
	ledgerHandler := ledger.NewHandler(logger, ledgerService)

	engine := reconcile.NewEngine(productRepo, metrics, logger)
	reconcileHandler := reconcile.NewHandler(logger, engine, reconcile.Options{
		Mode:               reconcile.ModeCreateOnly,
		AuthoritativeStock: cfg.ImportAuthoritativeStock,
	})

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		TokenManager:     tokens,
		AuthHandler:      authHandler,
		ProductHandler:   productHandler,
		LedgerHandler:    ledgerHandler,
		ReconcileHandler: reconcileHandler,
		JobHandler:       jobHandler,
		Pool:             pool,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
