package mailer

import "context"

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Html is optional; Text is recommended as fallback.
// You can also use a template by specifying Template and Data; the worker
// renders it when Subject and bodies are empty.
type EmailJob struct {
	To       string         `json:"to"`
	From     string         `json:"from,omitempty"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"` // e.g. "account_otp", "password_reset"
	Data     map[string]any `json:"data,omitempty"`
}

// Sender delivers a single job, either directly or by handing it to a queue.
type Sender interface {
	Send(ctx context.Context, job EmailJob) error
}
