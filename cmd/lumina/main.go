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

	"github.com/lumina-id/lumina-id/internal/accounts"
	"github.com/lumina-id/lumina-id/internal/app"
	"github.com/lumina-id/lumina-id/internal/notify"
	"github.com/lumina-id/lumina-id/internal/observability"
	"github.com/lumina-id/lumina-id/internal/platform/cache"
	"github.com/lumina-id/lumina-id/internal/platform/db"
	"github.com/lumina-id/lumina-id/internal/social"
	"github.com/lumina-id/lumina-id/internal/token"
	"github.com/lumina-id/lumina-id/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	tokenService, err := token.NewService(token.Config{
		SigningKey: cfg.TokenSigningKey,
		Issuer:     cfg.TokenIssuer,
		SessionTTL: cfg.TokenTTL,
	})
	if err != nil {
		logger.Error("init token service", slog.Any("error", err))
		os.Exit(1)
	}

	queueClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := queueClient.Close(); err != nil {
			logger.Warn("queue client close", slog.Any("error", err))
		}
	}()
	dispatcher := notify.NewDispatcher(queueClient, logger, metrics)

	providers := social.NewRegistry(
		social.NewGoogle(social.GoogleConfig{}),
		social.NewGitHub(social.GitHubConfig{}),
	)

	accountsRepo := accounts.NewRepository(pool)
	accountsService, err := accounts.NewService(accountsRepo, tokenService, dispatcher, providers, logger, accounts.ServiceConfig{
		ActionTokenTTL:   cfg.ActionTokenTTL,
		MaxLoginAttempts: cfg.MaxLoginAttempts,
	})
	if err != nil {
		logger.Error("init accounts service", slog.Any("error", err))
		os.Exit(1)
	}
	accountsHandler := accounts.NewHandler(logger, accountsService, app.ThrottleAnonymous())

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Config:          cfg,
		AccountsHandler: accountsHandler,
		JobHandler:      jobHandler,
		Metrics:         metrics,
		Middleware: app.MiddlewareConfig{
			Logger:  logger,
			Config:  cfg,
			Metrics: metrics,
		},
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
