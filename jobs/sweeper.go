package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/lumina-id/lumina-id/internal/jobs"
)

// ExpiredPurger removes expired action tokens and stale pending accounts.
// Satisfied by the accounts repository.
type ExpiredPurger interface {
	PurgeExpired(ctx context.Context, pendingCutoff time.Time) (tokens, accounts int64, err error)
}

// PurgeExpiredJob is the scheduled sweep that keeps the token table small and
// reclaims accounts that registered but never activated.
type PurgeExpiredJob struct {
	purger     ExpiredPurger
	logger     *slog.Logger
	metrics    *jobmetrics.Metrics
	pendingTTL time.Duration
	clock      func() time.Time
}

// NewPurgeExpiredJob initialises the sweep handler. pendingTTL is how long a
// pending account may exist before it becomes eligible for removal once its
// activation token has expired.
func NewPurgeExpiredJob(purger ExpiredPurger, logger *slog.Logger, metrics *jobmetrics.Metrics, pendingTTL time.Duration) *PurgeExpiredJob {
	if pendingTTL <= 0 {
		pendingTTL = 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PurgeExpiredJob{
		purger:     purger,
		logger:     logger,
		metrics:    metrics,
		pendingTTL: pendingTTL,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the sweep.
func (j *PurgeExpiredJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.purger == nil {
		return errors.New("purge expired: handler not configured")
	}
	tracker := j.metrics.Track(TaskTypePurgeExpired)

	cutoff := j.clock().Add(-j.pendingTTL)
	tokens, accounts, err := j.purger.PurgeExpired(ctx, cutoff)
	if err != nil {
		j.logger.ErrorContext(ctx, "purge expired", slog.Any("error", err))
		return tracker.End(err)
	}
	j.logger.InfoContext(ctx, "purge expired complete",
		slog.Int64("tokens_removed", tokens),
		slog.Int64("accounts_removed", accounts))
	return tracker.End(nil)
}
