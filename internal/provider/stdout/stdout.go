// Package stdout implements a Provider that prints emails to standard output.
package stdout

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shineum/send-email-message/internal/email"
)

const separator = "========================================\n"

// Provider prints email messages to stdout in a human-readable format.
type Provider struct {
	// writer is the output destination, defaulting to os.Stdout.
	writer io.Writer
}

// New creates a new stdout Provider that writes to os.Stdout.
func New() *Provider {
	return &Provider{writer: os.Stdout}
}

// NewWithWriter creates a new stdout Provider that writes to the given writer.
// This is useful for testing.
func NewWithWriter(w io.Writer) *Provider {
	return &Provider{writer: w}
}

// Send prints the email message in a readable format.
// Write errors are ignored; this provider never fails.
func (p *Provider) Send(_ context.Context, msg *email.Message) error {
	var b strings.Builder

	b.WriteString(separator)
	fmt.Fprintf(&b, "From: %s\n", msg.From)
	fmt.Fprintf(&b, "To: %s\n", strings.Join(msg.To, ", "))

	if len(msg.Cc) > 0 {
		fmt.Fprintf(&b, "Cc: %s\n", strings.Join(msg.Cc, ", "))
	}
	if len(msg.Bcc) > 0 {
		fmt.Fprintf(&b, "Bcc: %s\n", strings.Join(msg.Bcc, ", "))
	}

	fmt.Fprintf(&b, "Subject: %s\n", msg.Subject)
	b.WriteString("\n")
	b.WriteString(msg.Body)
	if !strings.HasSuffix(msg.Body, "\n") {
		b.WriteString("\n")
	}
	b.WriteString(separator)

	_, _ = io.WriteString(p.writer, b.String())
	return nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "stdout"
}
