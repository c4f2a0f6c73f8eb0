// Package main is the entry point for send-email-message.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/shineum/send-email-message/internal/exitcode"
	"github.com/shineum/send-email-message/internal/message"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the root command and maps its error to an exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := newRootCommand(stdin, stdout, stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return exitcode.Success
	}

	if errors.Is(err, message.ErrCancelled) {
		fmt.Fprint(stderr, "Operation cancelled.\n")
		return exitcode.Cancelled
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)
	return exitCodeFor(err)
}

func exitCodeFor(err error) int {
	var (
		usageErr    *usageError
		configErr   *configError
		readErr     *message.FileReadError
		invalidErr  *message.InvalidAddressError
		deliveryErr *message.DeliveryError
	)

	switch {
	case errors.As(err, &usageErr):
		return exitcode.Usage
	case errors.As(err, &configErr):
		return exitcode.ConfigError
	case errors.As(err, &readErr):
		return exitcode.IOError
	case errors.As(err, &invalidErr):
		return exitcode.InvalidAddress
	case errors.As(err, &deliveryErr):
		return exitcode.SendError
	default:
		return exitcode.Failure
	}
}

// usageError marks bad arguments or flags.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// configError marks configuration that could not be loaded or used.
type configError struct{ err error }

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }
