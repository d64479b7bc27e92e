package mailer

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// SendgridMailer delivers messages through the Sendgrid v3 API.
type SendgridMailer struct {
	client *sendgrid.Client
	from   *sgmail.Email
	logger *zap.Logger
}

// NewSendgridMailer constructs a Sendgrid-backed mailer.
func NewSendgridMailer(apiKey, fromName, fromAddress string, logger *zap.Logger) *SendgridMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SendgridMailer{
		client: sendgrid.NewSendClient(apiKey),
		from:   sgmail.NewEmail(fromName, fromAddress),
		logger: logger,
	}
}

// Send delivers a single message.
func (m *SendgridMailer) Send(_ context.Context, msg Message) error {
	to := sgmail.NewEmail(msg.ToName, msg.ToAddress)
	mail := sgmail.NewSingleEmail(m.from, msg.Subject, to, msg.TextBody, "")

	resp, err := m.client.Send(mail)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		m.logger.Warn("sendgrid rejected message",
			zap.Int("status", resp.StatusCode),
			zap.String("to", msg.ToAddress))
		return fmt.Errorf("sendgrid send: status %d", resp.StatusCode)
	}
	return nil
}
