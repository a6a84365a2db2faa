// Package notify turns account lifecycle events into broker tasks and
// delivers the resulting email.
package notify

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/lumina-id/lumina-id/jobs"
)

// Enqueuer submits tasks to the broker. Satisfied by jobs.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// FailureCounter records publish failures for alerting.
type FailureCounter interface {
	PublishFailure()
}

// Dispatcher enqueues notification tasks. Callers invoke it only after their
// database transaction has committed; enqueue failures are logged and counted
// but never surfaced, so a broker outage cannot fail a registration.
type Dispatcher struct {
	enqueuer Enqueuer
	logger   *slog.Logger
	failures FailureCounter
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(enqueuer Enqueuer, logger *slog.Logger, failures FailureCounter) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{enqueuer: enqueuer, logger: logger, failures: failures}
}

// AccountRegistered queues the activation email.
func (d *Dispatcher) AccountRegistered(ctx context.Context, email, firstName, activationToken string) {
	task, err := jobs.NewActivationEmailTask(jobs.NotificationPayload{
		Email:     email,
		FirstName: firstName,
		Token:     activationToken,
	})
	if err != nil {
		d.dropped(ctx, jobs.TaskTypeActivationEmail, err)
		return
	}
	d.enqueue(ctx, task)
}

// PasswordResetRequested queues the reset email.
func (d *Dispatcher) PasswordResetRequested(ctx context.Context, email, firstName, resetToken string) {
	task, err := jobs.NewResetEmailTask(jobs.NotificationPayload{
		Email:     email,
		FirstName: firstName,
		Token:     resetToken,
	})
	if err != nil {
		d.dropped(ctx, jobs.TaskTypeResetEmail, err)
		return
	}
	d.enqueue(ctx, task)
}

func (d *Dispatcher) enqueue(ctx context.Context, task *asynq.Task) {
	if d.enqueuer == nil {
		d.dropped(ctx, task.Type(), nil)
		return
	}
	_, err := d.enqueuer.EnqueueContext(ctx, task, asynq.Queue(jobs.QueueDefault), asynq.MaxRetry(5))
	if err != nil {
		d.dropped(ctx, task.Type(), err)
	}
}

func (d *Dispatcher) dropped(ctx context.Context, taskType string, err error) {
	d.logger.ErrorContext(ctx, "notification dropped",
		slog.String("task", taskType), slog.Any("error", err))
	if d.failures != nil {
		d.failures.PublishFailure()
	}
}
