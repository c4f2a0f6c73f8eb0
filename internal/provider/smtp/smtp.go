// Package smtp implements a Provider that relays emails to an SMTP server.
package smtp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	gomail "gopkg.in/mail.v2"

	"github.com/shineum/send-email-message/internal/email"
	mtls "github.com/shineum/send-email-message/internal/tls"
)

// SMTPProviderConfig holds the configuration for creating an SMTPProvider.
type SMTPProviderConfig struct {
	Host     string
	Port     int
	Username string
	Password string

	// SSL dials with implicit TLS; otherwise STARTTLS is negotiated,
	// mandatory when StartTLS is set and opportunistic when it is not.
	SSL                bool
	StartTLS           bool
	InsecureSkipVerify bool
	CAFile             string
	CertFile           string
	KeyFile            string

	Timeout time.Duration
}

// DialAndSender opens a connection, sends the messages and closes it.
// *gomail.Dialer satisfies it.
type DialAndSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPProvider sends emails through an SMTP relay.
type SMTPProvider struct {
	dialer   DialAndSender
	hostname string
	now      func() time.Time
}

// New creates a new SMTPProvider with the given configuration.
func New(cfg SMTPProviderConfig) (*SMTPProvider, error) {
	tlsCfg, err := mtls.ClientConfig(mtls.ClientOptions{
		ServerName:         cfg.Host,
		CAFile:             cfg.CAFile,
		CertFile:           cfg.CertFile,
		KeyFile:            cfg.KeyFile,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build SMTP TLS config: %w", err)
	}

	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.SSL = cfg.SSL
	d.TLSConfig = tlsCfg
	d.StartTLSPolicy = gomail.OpportunisticStartTLS
	if cfg.StartTLS {
		d.StartTLSPolicy = gomail.MandatoryStartTLS
	}
	if cfg.Timeout > 0 {
		d.Timeout = cfg.Timeout
	}

	return NewWithDialer(d), nil
}

// NewWithDialer creates an SMTPProvider with a custom dialer, used for testing.
func NewWithDialer(d DialAndSender) *SMTPProvider {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "localhost"
	}
	return &SMTPProvider{
		dialer:   d,
		hostname: hostname,
		now:      time.Now,
	}
}

// Send delivers an email message over a single SMTP session. The dial runs
// in the background so that a cancelled context returns immediately.
func (p *SMTPProvider) Send(ctx context.Context, msg *email.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := p.buildMessage(msg)

	done := make(chan error, 1)
	go func() {
		done <- p.dialer.DialAndSend(m)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("SMTP delivery failed: %w", err)
		}
		slog.Debug("SMTP relay accepted message",
			"message_id", m.GetHeader("Message-ID"),
			"recipients", len(msg.Recipients()),
		)
		return nil
	}
}

// Name returns the provider name.
func (p *SMTPProvider) Name() string {
	return "smtp"
}

// buildMessage renders the message as a plain-text MIME message. Bcc
// addresses are kept as envelope recipients only.
func (p *SMTPProvider) buildMessage(msg *email.Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", msg.From)
	m.SetHeader("To", msg.To...)
	if len(msg.Cc) > 0 {
		m.SetHeader("Cc", msg.Cc...)
	}
	if len(msg.Bcc) > 0 {
		m.SetHeader("Bcc", msg.Bcc...)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetDateHeader("Date", p.now())
	m.SetHeader("Message-ID", fmt.Sprintf("<%s@%s>", uuid.NewString(), p.hostname))
	m.SetBody("text/plain", msg.Body)
	return m
}
