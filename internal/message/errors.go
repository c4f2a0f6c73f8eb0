package message

import (
	"errors"
	"fmt"
)

// ErrCancelled is returned when the operator declines the confirmation
// prompt, closes its input or interrupts the command.
var ErrCancelled = errors.New("operation cancelled")

// FileReadError is returned when the message file exists but cannot be read.
type FileReadError struct {
	Path string
	Err  error
}

func (e *FileReadError) Error() string {
	return fmt.Sprintf("error reading message file %q: %v", e.Path, e.Err)
}

func (e *FileReadError) Unwrap() error { return e.Err }

// InvalidAddressError reports the first address that failed validation.
type InvalidAddressError struct {
	Address string
	Err     error
}

func (e *InvalidAddressError) Error() string {
	return fmt.Sprintf("%q is not a valid email address", e.Address)
}

func (e *InvalidAddressError) Unwrap() error { return e.Err }

// DeliveryError wraps a provider failure.
type DeliveryError struct {
	Provider string
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s delivery failed: %v", e.Provider, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
