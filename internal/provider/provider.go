// Package provider defines the interface for email delivery backends.
package provider

import (
	"context"

	"github.com/shineum/send-email-message/internal/email"
)

// Provider is the interface that email delivery backends must implement.
// Each provider hands a resolved message to the target service
// (e.g., stdout, an SMTP relay, SES, Microsoft Graph, Resend, SendGrid).
type Provider interface {
	// Send delivers an email message through this provider.
	// It returns an error if the delivery fails.
	Send(ctx context.Context, msg *email.Message) error

	// Name returns the human-readable name of this provider.
	Name() string
}
