package message

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shineum/send-email-message/internal/email"
)

// Prompt is written before reading the operator's answer.
const Prompt = "Send email message? [Y/n] "

const confirmationTemplate = `
---------- MESSAGE FOLLOWS ----------
Subject: %s
From: %s
To: %s
Cc: %s

%s
------------ END MESSAGE ------------
`

// FormatConfirmation renders the preview shown before sending. Bcc
// recipients are not listed.
func FormatConfirmation(msg *email.Message) string {
	return fmt.Sprintf(confirmationTemplate,
		msg.Subject,
		msg.From,
		strings.Join(msg.To, ", "),
		strings.Join(msg.Cc, ", "),
		msg.Body,
	)
}

// Confirm writes Prompt to out and reads one line from in. Any answer that
// starts with "n" or "N" declines, as does end of input; everything else,
// including an empty line, accepts. A done ctx returns its error.
func Confirm(ctx context.Context, in io.Reader, out io.Writer) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if _, err := io.WriteString(out, Prompt); err != nil {
		return false, err
	}

	type result struct {
		line string
		err  error
	}

	done := make(chan result, 1)
	go func() {
		line, err := bufio.NewReader(in).ReadString('\n')
		done <- result{line, err}
	}()

	var res result
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case res = <-done:
	}

	if res.err != nil {
		if !errors.Is(res.err, io.EOF) {
			return false, fmt.Errorf("reading confirmation: %w", res.err)
		}
		if res.line == "" {
			return false, nil
		}
	}

	answer := strings.TrimRight(res.line, "\r\n")
	return !strings.HasPrefix(strings.ToLower(answer), "n"), nil
}
