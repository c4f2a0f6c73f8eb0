package message

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/shineum/send-email-message/internal/email"
	"github.com/shineum/send-email-message/internal/provider"
)

// Command runs one send-email-message invocation end to end.
type Command struct {
	builder *Builder
	mailer  provider.Provider
	stdin   io.Reader
	stdout  io.Writer
}

// NewCommand wires a Command. stdin feeds both the "-" message source and
// the confirmation prompt; stdout receives the preview and status lines.
func NewCommand(book AddressBook, mailer provider.Provider, stdin io.Reader, stdout io.Writer) *Command {
	return &Command{
		builder: NewBuilder(book, stdin),
		mailer:  mailer,
		stdin:   stdin,
		stdout:  stdout,
	}
}

// Run builds the message, shows the preview when verbosity is above 1 or the
// run is interactive, asks for confirmation when interactive and sends.
func (c *Command) Run(ctx context.Context, opts Options) error {
	msg, interactive, err := c.builder.Build(ctx, opts)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", ErrCancelled, err)
		}
		return err
	}

	if opts.Verbosity > 1 || interactive {
		fmt.Fprint(c.stdout, FormatConfirmation(msg))
	}

	if interactive {
		ok, err := Confirm(ctx, c.stdin, c.stdout)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("%w: %w", ErrCancelled, err)
			}
			return err
		}
		if !ok {
			return ErrCancelled
		}
	}

	if err := Dispatch(ctx, c.mailer, msg); err != nil {
		return err
	}

	if opts.Verbosity > 1 {
		fmt.Fprint(c.stdout, "Message sent\n")
	}
	return nil
}

// Dispatch hands msg to mailer. A message without any recipient is not
// sent and is not an error. Failures are logged and dropped when
// msg.FailSilently is set, unless ctx was cancelled, which always reports
// ErrCancelled.
func Dispatch(ctx context.Context, mailer provider.Provider, msg *email.Message) error {
	if len(msg.Recipients()) == 0 {
		slog.Debug("no recipients, nothing to send", "provider", mailer.Name())
		return nil
	}

	slog.Debug("sending message",
		"provider", mailer.Name(),
		"recipients", len(msg.Recipients()),
	)

	err := mailer.Send(ctx, msg)
	if err == nil {
		return nil
	}

	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}

	if msg.FailSilently {
		slog.Debug("delivery failed silently",
			"provider", mailer.Name(),
			"error", err,
		)
		return nil
	}

	return &DeliveryError{Provider: mailer.Name(), Err: err}
}
