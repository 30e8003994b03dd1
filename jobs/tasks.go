package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypePurgeLoginAttempts removes stale login attempt records.
	TaskTypePurgeLoginAttempts = "maintenance:purge_login_attempts"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// NewPurgeLoginAttemptsTask constructs the maintenance task. It carries
// no payload; retention is worker configuration.
func NewPurgeLoginAttemptsTask() *asynq.Task {
	return asynq.NewTask(TaskTypePurgeLoginAttempts, nil)
}
