package mailer

import (
	"context"

	"go.uber.org/zap"

	"superadmin/internal/config"
	apperrors "superadmin/internal/errors"
)

// Message is a multipart email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers messages and returns the transport's message ID.
type Mailer interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// New selects a transport from configuration and wraps it with retries.
// Without credentials it returns a mailer that always fails with ErrMailNotConfigured.
func New(cfg config.MailConfig, log *zap.Logger) Mailer {
	var transport Mailer
	switch {
	case cfg.Driver == "http" && cfg.APIURL != "":
		transport = NewHTTPMailer(cfg.APIURL, cfg.APIKey, cfg.From)
		log.Info("mail transport ready", zap.String("driver", "http"), zap.String("url", cfg.APIURL))
	case cfg.SMTPConfigured():
		transport = NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.From)
		log.Info("mail transport ready", zap.String("driver", "smtp"), zap.String("host", cfg.SMTPHost))
	default:
		log.Warn("mail transport not configured, reminders will fail until SMTP_USER and SMTP_PASS are set")
		return Disabled{}
	}
	return NewRetryMailer(transport, uint64(cfg.MaxRetries), log)
}

// Disabled is the mailer used when no transport is configured.
type Disabled struct{}

// Send always fails.
func (Disabled) Send(context.Context, Message) (string, error) {
	return "", apperrors.ErrMailNotConfigured
}
