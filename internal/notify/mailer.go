// Package notify mails account holders about events on their account.
package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type Message struct {
	ToName  string
	ToEmail string
	Subject string
	Text    string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type SendGridMailer struct {
	client *sendgrid.Client
	from   *mail.Email
}

func NewSendGridMailer(apiKey string, fromName string, fromEmail string) *SendGridMailer {
	return &SendGridMailer{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail(fromName, fromEmail),
	}
}

func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	to := mail.NewEmail(msg.ToName, msg.ToEmail)
	message := mail.NewSingleEmail(m.from, msg.Subject, to, msg.Text, msg.HTML)

	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("send mail: sendgrid answered %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// LogMailer stands in when no mail provider is configured.
type LogMailer struct {
	Log func(msg string, args ...any)
}

func (m LogMailer) Send(_ context.Context, msg Message) error {
	if m.Log != nil {
		m.Log("mail not sent; no provider configured", "to", msg.ToEmail, "subject", msg.Subject)
	}
	return nil
}
