// Package mail renders and delivers the transactional emails of the auth flow.
package mail

import (
	"context"

	"go.uber.org/zap"
)

// Sender delivers one rendered HTML email.
type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// LogSender writes emails to the log instead of sending them. Useful for
// local runs without a mail provider.
type LogSender struct{ Log *zap.Logger }

// Send logs the message.
func (s LogSender) Send(_ context.Context, to, subject, html string) error {
	s.Log.Info("mail (not sent)",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("bytes", len(html)),
	)
	return nil
}
