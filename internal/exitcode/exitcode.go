// Package exitcode lists the process exit statuses of send-email-message.
package exitcode

const (
	Success = 0

	// Cancelled covers a declined prompt and an operator interrupt.
	Cancelled = 1
	// Failure is used for errors without a more specific code.
	Failure = 1

	Usage          = 2
	ConfigError    = 3
	IOError        = 4
	InvalidAddress = 5
	SendError      = 6
)
