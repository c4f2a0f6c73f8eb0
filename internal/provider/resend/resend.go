// Package resend implements a Provider that sends emails via the Resend API.
package resend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/resend/resend-go/v2"

	"github.com/shineum/send-email-message/internal/email"
)

// ResendProviderConfig holds the configuration for creating a ResendProvider.
// KeyPath is read only when APIKey is empty.
type ResendProviderConfig struct {
	APIKey  string
	KeyPath string
}

// EmailSender is the subset of the Resend emails service used for sending.
type EmailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// ResendProvider sends emails through the Resend HTTP API.
type ResendProvider struct {
	emails EmailSender
}

// New creates a new ResendProvider with the given configuration.
func New(cfg ResendProviderConfig) (*ResendProvider, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		if cfg.KeyPath == "" {
			return nil, errors.New("resend api key is required")
		}
		key, err := readKeyFile(cfg.KeyPath)
		if err != nil {
			return nil, err
		}
		apiKey = key
	}

	return NewWithClient(resend.NewClient(apiKey).Emails), nil
}

// NewWithClient creates a ResendProvider with a custom emails service, used for testing.
func NewWithClient(emails EmailSender) *ResendProvider {
	return &ResendProvider{emails: emails}
}

// Send delivers an email message as a plain-text Resend email.
func (p *ResendProvider) Send(ctx context.Context, msg *email.Message) error {
	params := &resend.SendEmailRequest{
		From:    msg.From,
		To:      msg.To,
		Cc:      msg.Cc,
		Bcc:     msg.Bcc,
		Subject: msg.Subject,
		Text:    msg.Body,
	}

	resp, err := p.emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("resend api request failed: %w", err)
	}
	if resp != nil {
		slog.Debug("Resend accepted message", "id", resp.Id)
	}
	return nil
}

// Name returns the provider name.
func (p *ResendProvider) Name() string {
	return "resend"
}

// readKeyFile loads an API key stored on its own in a file.
func readKeyFile(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("cannot load resend api key: %w", err)
	}

	apiKey := strings.TrimSpace(string(content))
	apiKey = strings.ReplaceAll(apiKey, "\r", "")
	if apiKey == "" {
		return "", fmt.Errorf("resend api key file %q is empty", path)
	}
	return apiKey, nil
}
