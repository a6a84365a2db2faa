package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/lumina-id/lumina-id/internal/jobs"
)

// Mailer sends a single email. Satisfied by notify.SMTPMailer.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// EmailJob handles the two notification task types by rendering the message
// and handing it to the mailer.
type EmailJob struct {
	mailer  Mailer
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
	baseURL string
}

// NewEmailJob initialises the email handlers. baseURL is the externally
// reachable origin used to build links.
func NewEmailJob(mailer Mailer, logger *slog.Logger, metrics *jobmetrics.Metrics, baseURL string) *EmailJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmailJob{
		mailer:  mailer,
		logger:  logger,
		metrics: metrics,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// HandleActivation processes TaskTypeActivationEmail tasks.
func (j *EmailJob) HandleActivation(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.mailer == nil {
		return errors.New("email job: handler not configured")
	}
	var payload NotificationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics.Track(TaskTypeActivationEmail)

	link := fmt.Sprintf("%s/api/users/activate/%s/", j.baseURL, payload.Token)
	body := fmt.Sprintf(
		"Hello %s,\r\n\r\nThanks for signing up. Confirm your email address by opening the link below:\r\n\r\n%s\r\n\r\nThe link expires; if it no longer works, register again.\r\n",
		greetingName(payload.FirstName), link)

	if err := j.mailer.Send(ctx, payload.Email, "Activate your account", body); err != nil {
		j.logger.ErrorContext(ctx, "send activation email", slog.Any("error", err))
		return tracker.End(err)
	}
	j.logger.InfoContext(ctx, "activation email sent", slog.String("to", payload.Email))
	return tracker.End(nil)
}

// HandleReset processes TaskTypeResetEmail tasks.
func (j *EmailJob) HandleReset(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.mailer == nil {
		return errors.New("email job: handler not configured")
	}
	var payload NotificationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics.Track(TaskTypeResetEmail)

	link := fmt.Sprintf("%s/password/reset/confirm/?token=%s", j.baseURL, payload.Token)
	body := fmt.Sprintf(
		"Hello %s,\r\n\r\nA password reset was requested for your account. Use the link below to choose a new password:\r\n\r\n%s\r\n\r\nIf you did not request this, you can ignore this email.\r\n",
		greetingName(payload.FirstName), link)

	if err := j.mailer.Send(ctx, payload.Email, "Reset your password", body); err != nil {
		j.logger.ErrorContext(ctx, "send reset email", slog.Any("error", err))
		return tracker.End(err)
	}
	j.logger.InfoContext(ctx, "reset email sent", slog.String("to", payload.Email))
	return tracker.End(nil)
}

func greetingName(firstName string) string {
	if firstName == "" {
		return "there"
	}
	return firstName
}
