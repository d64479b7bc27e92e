package mailer

import (
	"context"

	"go.uber.org/zap"
)

// Message is a plain outbound email.
type Message struct {
	ToName    string
	ToAddress string
	Subject   string
	TextBody  string
}

// Mailer sends transactional email. Implementations must be safe for
// concurrent use.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// ConsoleMailer logs messages instead of sending them. Used in development
// and whenever no Sendgrid key is configured.
type ConsoleMailer struct {
	logger *zap.Logger
}

// NewConsoleMailer constructs a console mailer.
func NewConsoleMailer(logger *zap.Logger) *ConsoleMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleMailer{logger: logger}
}

// Send logs the message.
func (m *ConsoleMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("email (console)",
		zap.String("to", msg.ToAddress),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.TextBody),
	)
	return nil
}
