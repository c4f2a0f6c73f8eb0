package message

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/samber/lo"

	"github.com/shineum/send-email-message/internal/address"
	"github.com/shineum/send-email-message/internal/email"
)

// Builder resolves Options into a validated email.Message.
type Builder struct {
	book  AddressBook
	stdin io.Reader
}

// NewBuilder returns a Builder reading group members and defaults from book.
// stdin is consumed when the message source is StdinMarker.
func NewBuilder(book AddressBook, stdin io.Reader) *Builder {
	return &Builder{book: book, stdin: stdin}
}

// Build resolves the body, expands and validates To, Bcc and Cc in that
// order, then applies the sender and subject defaults. The returned flag is
// false when the body came from standard input, which rules out prompting.
func (b *Builder) Build(ctx context.Context, opts Options) (*email.Message, bool, error) {
	body, fromStdin, err := b.ResolveBody(ctx, opts.Message)
	if err != nil {
		return nil, false, err
	}

	msg := &email.Message{
		Subject:      opts.Subject,
		Body:         body,
		From:         opts.From,
		FailSilently: opts.FailSilently,
	}

	for _, list := range []struct {
		raw []string
		dst *[]string
	}{
		{opts.Recipients, &msg.To},
		{opts.Bcc, &msg.Bcc},
		{opts.Cc, &msg.Cc},
	} {
		resolved := b.ResolveRecipients(list.raw)
		if err := ValidateAddresses(resolved); err != nil {
			return nil, false, err
		}
		*list.dst = resolved
	}

	b.ApplyDefaults(msg, opts.NoPrefix)

	return msg, opts.Interactive && !fromStdin, nil
}

// ResolveBody returns the message text for source: the contents of an
// existing regular file, all of standard input for StdinMarker, or source
// itself. The file check comes first, so a file named "-" is read as a file.
func (b *Builder) ResolveBody(ctx context.Context, source string) (string, bool, error) {
	if fi, err := os.Stat(source); err == nil && fi.Mode().IsRegular() {
		data, err := os.ReadFile(source)
		if err != nil {
			return "", false, &FileReadError{Path: source, Err: err}
		}
		return string(data), false, nil
	}

	if source == StdinMarker {
		data, err := readAll(ctx, b.stdin)
		if err != nil {
			return "", true, err
		}
		return string(data), true, nil
	}

	return source, false, nil
}

// ResolveRecipients returns a new list with every group token removed and the
// group members appended at the end, once per token occurrence.
func (b *Builder) ResolveRecipients(raw []string) []string {
	if len(raw) == 0 {
		return nil
	}

	resolved := lo.Reject(raw, isGroupToken)
	for _, token := range lo.Filter(raw, isGroupToken) {
		resolved = append(resolved, b.book.Lookup(token)...)
	}
	return resolved
}

// ValidateAddresses stops at the first invalid address.
func ValidateAddresses(list []string) error {
	for _, addr := range list {
		if err := address.Validate(addr); err != nil {
			return &InvalidAddressError{Address: addr, Err: err}
		}
	}
	return nil
}

// ApplyDefaults fills in the default sender when none was given and prepends
// the subject prefix unless noPrefix is set.
func (b *Builder) ApplyDefaults(msg *email.Message, noPrefix bool) {
	if msg.From == "" {
		msg.From = b.book.DefaultFromAddress()
	}
	if !noPrefix {
		msg.Subject = b.book.SubjectPrefix() + msg.Subject
	}
}

// readAll reads r to EOF, giving up when ctx is done.
func readAll(ctx context.Context, r io.Reader) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type result struct {
		data []byte
		err  error
	}

	done := make(chan result, 1)
	go func() {
		data, err := io.ReadAll(r)
		done <- result{data, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("reading standard input: %w", res.err)
		}
		return res.data, nil
	}
}
