// Package jobs defines the asynq task types exchanged between the API process
// and the worker, plus the worker runtime itself.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskTypeActivationEmail delivers the account activation email.
	TaskTypeActivationEmail = "notify:activation"
	// TaskTypeResetEmail delivers the password reset email.
	TaskTypeResetEmail = "notify:password_reset"
	// TaskTypePurgeExpired sweeps expired action tokens and stale pending
	// accounts.
	TaskTypePurgeExpired = "accounts:purge_expired"
)

// NotificationPayload carries what an email task needs: the recipient and the
// raw single-use token to embed in the link. Only the hash of the token lives
// in the database; this payload is the one other place the raw value exists.
type NotificationPayload struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	Token     string `json:"token"`
}

// NewActivationEmailTask constructs an activation email task.
func NewActivationEmailTask(payload NotificationPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeActivationEmail, data), nil
}

// NewResetEmailTask constructs a password reset email task.
func NewResetEmailTask(payload NotificationPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeResetEmail, data), nil
}

// NewPurgeExpiredTask constructs the sweep task. It carries no payload; the
// cutoff is computed by the handler at execution time.
func NewPurgeExpiredTask() *asynq.Task {
	return asynq.NewTask(TaskTypePurgeExpired, nil)
}
