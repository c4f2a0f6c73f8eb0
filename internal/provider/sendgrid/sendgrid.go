// Package sendgrid implements a Provider that sends emails via the SendGrid v3 API.
package sendgrid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	netmail "net/mail"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/shineum/send-email-message/internal/email"
)

// Client is the subset of the SendGrid client used for sending.
type Client interface {
	SendWithContext(ctx context.Context, m *sgmail.SGMailV3) (*rest.Response, error)
}

// SendGridProvider sends emails through the SendGrid v3 mail/send endpoint.
type SendGridProvider struct {
	client Client
}

// New creates a new SendGridProvider authenticating with apiKey.
func New(apiKey string) (*SendGridProvider, error) {
	if apiKey == "" {
		return nil, errors.New("sendgrid api key is required")
	}
	return NewWithClient(sendgrid.NewSendClient(apiKey)), nil
}

// NewWithClient creates a SendGridProvider with a custom client, used for testing.
func NewWithClient(client Client) *SendGridProvider {
	return &SendGridProvider{client: client}
}

// Send delivers an email message. Any non-2xx response is an error.
func (p *SendGridProvider) Send(ctx context.Context, msg *email.Message) error {
	resp, err := p.client.SendWithContext(ctx, buildMail(msg))
	if err != nil {
		return fmt.Errorf("sendgrid api request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sendgrid api returned %d: %s", resp.StatusCode, resp.Body)
	}

	slog.Debug("SendGrid accepted message",
		"status", resp.StatusCode,
		"message_id", resp.Headers["X-Message-Id"],
	)
	return nil
}

// Name returns the provider name.
func (p *SendGridProvider) Name() string {
	return "sendgrid"
}

// buildMail converts a message into a single-personalization v3 mail.
func buildMail(msg *email.Message) *sgmail.SGMailV3 {
	m := sgmail.NewV3Mail()
	m.SetFrom(toEmail(msg.From))
	m.Subject = msg.Subject

	p := sgmail.NewPersonalization()
	for _, addr := range msg.To {
		p.AddTos(toEmail(addr))
	}
	for _, addr := range msg.Cc {
		p.AddCCs(toEmail(addr))
	}
	for _, addr := range msg.Bcc {
		p.AddBCCs(toEmail(addr))
	}
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", msg.Body))

	return m
}

// toEmail splits a "Name <addr>" string; anything unparseable is sent as is.
func toEmail(addr string) *sgmail.Email {
	parsed, err := netmail.ParseAddress(addr)
	if err != nil {
		return sgmail.NewEmail("", addr)
	}
	return sgmail.NewEmail(parsed.Name, parsed.Address)
}
