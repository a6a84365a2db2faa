package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/lumina-id/lumina-id/internal/accounts"
	"github.com/lumina-id/lumina-id/internal/app"
	jobmetrics "github.com/lumina-id/lumina-id/internal/jobs"
	"github.com/lumina-id/lumina-id/internal/notify"
	"github.com/lumina-id/lumina-id/internal/platform/db"
	"github.com/lumina-id/lumina-id/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	metrics := jobmetrics.NewMetrics(nil)
	mailer := notify.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom)
	emailJob := jobs.NewEmailJob(mailer, logger, metrics, cfg.PublicBaseURL)

	accountsRepo := accounts.NewRepository(pool)
	purgeJob := jobs.NewPurgeExpiredJob(accountsRepo, logger, metrics, cfg.ActionTokenTTL)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeActivationEmail, Handler: emailJob.HandleActivation},
			{Type: jobs.TaskTypeResetEmail, Handler: emailJob.HandleReset},
			{Type: jobs.TaskTypePurgeExpired, Handler: purgeJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 * * * *", Task: jobs.NewPurgeExpiredTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker shut down")
}
