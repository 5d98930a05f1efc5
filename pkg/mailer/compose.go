package mailer

import (
	mailtpl "github.com/oksasatya/go-account-service/pkg/mailer/templates"
)

// Compose renders the named template into a ready-to-send job.
func Compose(to, from, template string, data mailtpl.EmailData) (EmailJob, error) {
	subject, text, html, err := mailtpl.Render(template, data)
	if err != nil {
		return EmailJob{}, err
	}
	return EmailJob{
		To:       to,
		From:     from,
		Subject:  subject,
		Text:     text,
		HTML:     html,
		Template: template,
	}, nil
}

// EnsureRendered fills Subject, Text and HTML from Template and Data when the
// producer left them empty.
func EnsureRendered(job *EmailJob) error {
	if job.Template == "" || job.HTML != "" || job.Text != "" {
		return nil
	}
	if job.Data == nil {
		job.Data = map[string]any{}
	}
	if _, ok := job.Data["Email"]; !ok {
		job.Data["Email"] = job.To
	}
	subject, text, html, err := mailtpl.Render(job.Template, job.Data)
	if err != nil {
		return err
	}
	if job.Subject == "" {
		job.Subject = subject
	}
	job.Text, job.HTML = text, html
	return nil
}
