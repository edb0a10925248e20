package notify

import (
	"context"
	"fmt"

	"hireflow-backend/internal/config"
	"hireflow-backend/internal/logger"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Sender delivers one rendered email.
type Sender interface {
	Send(ctx context.Context, toEmail, toName, subject, body string) error
}

type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

func NewSendGridSender(cfg config.SendGridConfig) *SendGridSender {
	return &SendGridSender{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
	}
}

func (s *SendGridSender) Send(ctx context.Context, toEmail, toName, subject, body string) error {
	logger.ExternalServiceCall("sendgrid", "Send", "to", toEmail, "subject", subject)

	from := mail.NewEmail(s.fromName, s.fromEmail)
	recipient := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, recipient, body, "")

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		err = fmt.Errorf("failed to send email: %w", err)
	} else if response.StatusCode >= 400 {
		err = fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	logger.ExternalServiceResult("sendgrid", "Send", err, "to", toEmail)
	return err
}

// LogSender stands in for SendGrid when no API key is configured.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, toEmail, toName, subject, body string) error {
	logger.InfoContext(ctx, "Email delivery disabled, dropping message", "to", toEmail, "subject", subject)
	return nil
}

// NewSender picks SendGrid when an API key is configured.
func NewSender(cfg config.SendGridConfig) Sender {
	if cfg.APIKey == "" {
		return LogSender{}
	}
	return NewSendGridSender(cfg)
}
