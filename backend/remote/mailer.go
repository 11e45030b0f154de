package remote

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/vidana-academy/learning-hub/backend/utils"
)

type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type SendgridMailer struct {
	client *sendgrid.Client
	from   *mail.Email
}

func NewSendgridMailer(apiKey, fromName, fromAddress string) *SendgridMailer {
	return &SendgridMailer{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail(fromName, fromAddress),
	}
}

func (m *SendgridMailer) Send(ctx context.Context, msg Message) error {
	email := mail.NewSingleEmail(m.from, msg.Subject, mail.NewEmail("", msg.To), msg.Text, msg.HTML)
	resp, err := m.client.Send(email)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// LogMailer writes messages to the log instead of delivering them.
type LogMailer struct {
	log *utils.Logger
}

func NewLogMailer(log *utils.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.log.Info("mail not delivered (no provider configured)",
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Text,
	)
	return nil
}
