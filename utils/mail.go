package utils

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Mailer sends account notifications.
type Mailer interface {
	SendWelcome(ctx context.Context, to, username string) error
}

// NewMailer returns a SendGrid mailer, or a LogMailer when apiKey is empty.
func NewMailer(apiKey, from string) Mailer {
	if apiKey == "" {
		return LogMailer{}
	}
	return &SendGridMailer{client: sendgrid.NewSendClient(apiKey), from: from}
}

type SendGridMailer struct {
	client *sendgrid.Client
	from   string
}

func (m *SendGridMailer) SendWelcome(ctx context.Context, to, username string) error {
	from := mail.NewEmail("Todo API", m.from)
	recipient := mail.NewEmail(username, to)
	subject := "Welcome to Todo"
	plain, htmlBody := welcomeBody(username)

	message := mail.NewSingleEmail(from, subject, recipient, plain, htmlBody)
	response, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sending welcome mail: %w", err)
	}
	if response.StatusCode >= 300 {
		return fmt.Errorf("sending welcome mail: sendgrid status %d", response.StatusCode)
	}

	slog.DebugContext(ctx, "welcome mail sent", "to", to, "status", response.StatusCode)
	return nil
}

// LogMailer only logs the mail it would send.
type LogMailer struct{}

func (LogMailer) SendWelcome(ctx context.Context, to, username string) error {
	slog.InfoContext(ctx, "mail disabled, welcome mail not sent", "to", to, "username", username)
	return nil
}

func welcomeBody(username string) (plain, htmlBody string) {
	plain = fmt.Sprintf("Hi %s, your todo account is ready.", username)
	htmlBody = fmt.Sprintf("<strong>Hi %s, your todo account is ready.</strong>", html.EscapeString(username))
	return plain, htmlBody
}
