package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	_ "github.com/lumina-id/lumina-id/testing"
)

type captureMailer struct {
	to      string
	subject string
	body    string
	err     error
}

func (m *captureMailer) Send(ctx context.Context, to, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.to = to
	m.subject = subject
	m.body = body
	return nil
}

func activationTask(t *testing.T, payload NotificationPayload) *asynq.Task {
	t.Helper()
	task, err := NewActivationEmailTask(payload)
	require.NoError(t, err)
	return task
}

func TestHandleActivationBuildsLink(t *testing.T) {
	mailer := &captureMailer{}
	job := NewEmailJob(mailer, nil, nil, "https://id.example.com/")

	task := activationTask(t, NotificationPayload{
		Email:     "ada@example.com",
		FirstName: "Ada",
		Token:     "tok-abc",
	})
	require.NoError(t, job.HandleActivation(context.Background(), task))

	require.Equal(t, "ada@example.com", mailer.to)
	require.Equal(t, "Activate your account", mailer.subject)
	require.Contains(t, mailer.body, "https://id.example.com/api/users/activate/tok-abc/")
	require.Contains(t, mailer.body, "Hello Ada")
}

func TestHandleResetBuildsLink(t *testing.T) {
	mailer := &captureMailer{}
	job := NewEmailJob(mailer, nil, nil, "https://id.example.com")

	task, err := NewResetEmailTask(NotificationPayload{Email: "ada@example.com", Token: "tok-xyz"})
	require.NoError(t, err)
	require.NoError(t, job.HandleReset(context.Background(), task))

	require.Equal(t, "Reset your password", mailer.subject)
	require.Contains(t, mailer.body, "token=tok-xyz")
	require.Contains(t, mailer.body, "Hello there")
}

func TestHandleActivationSkipsBadPayload(t *testing.T) {
	job := NewEmailJob(&captureMailer{}, nil, nil, "https://id.example.com")
	err := job.HandleActivation(context.Background(), asynq.NewTask(TaskTypeActivationEmail, []byte("{broken")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleActivationPropagatesMailerError(t *testing.T) {
	mailer := &captureMailer{err: errors.New("smtp refused")}
	job := NewEmailJob(mailer, nil, nil, "https://id.example.com")

	task := activationTask(t, NotificationPayload{Email: "ada@example.com", Token: "tok"})
	require.Error(t, job.HandleActivation(context.Background(), task))
}

func TestNotificationPayloadRoundTrip(t *testing.T) {
	task := activationTask(t, NotificationPayload{Email: "a@b.c", FirstName: "A", Token: "tk"})
	var decoded NotificationPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	require.Equal(t, "tk", decoded.Token)
}
