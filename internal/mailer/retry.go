package mailer

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	apperrors "superadmin/internal/errors"
)

// RetryMailer retries transient send failures with exponential backoff.
type RetryMailer struct {
	next       Mailer
	maxRetries uint64
	log        *zap.Logger
	newBackOff func() backoff.BackOff
}

// NewRetryMailer wraps next. maxRetries of 0 disables retrying.
func NewRetryMailer(next Mailer, maxRetries uint64, log *zap.Logger) *RetryMailer {
	return &RetryMailer{
		next:       next,
		maxRetries: maxRetries,
		log:        log,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			b.MaxElapsedTime = 30 * time.Second
			return b
		},
	}
}

// Send delivers msg, retrying on transient errors.
func (m *RetryMailer) Send(ctx context.Context, msg Message) (string, error) {
	op := func() (string, error) {
		id, err := m.next.Send(ctx, msg)
		if err != nil && (errors.Is(err, apperrors.ErrMailNotConfigured) || ctx.Err() != nil) {
			return "", backoff.Permanent(err)
		}
		return id, err
	}
	notify := func(err error, wait time.Duration) {
		m.log.Warn("mail send failed, retrying",
			zap.String("to", msg.To),
			zap.Duration("wait", wait),
			zap.Error(err))
	}

	b := backoff.WithContext(backoff.WithMaxRetries(m.newBackOff(), m.maxRetries), ctx)
	return backoff.RetryNotifyWithData(op, b, notify)
}
