package message

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shineum/send-email-message/internal/email"
)

func TestFormatConfirmation(t *testing.T) {
	t.Parallel()

	got := FormatConfirmation(&email.Message{
		Subject: "[Django] Hello",
		From:    "webmaster@x.com",
		To:      []string{"a@x.com", "b@x.com"},
		Cc:      []string{"c@x.com"},
		Bcc:     []string{"hidden@x.com"},
		Body:    "Hi there",
	})

	want := "\n" +
		"---------- MESSAGE FOLLOWS ----------\n" +
		"Subject: [Django] Hello\n" +
		"From: webmaster@x.com\n" +
		"To: a@x.com, b@x.com\n" +
		"Cc: c@x.com\n" +
		"\n" +
		"Hi there\n" +
		"------------ END MESSAGE ------------\n"

	assert.Equal(t, want, got)
}

func TestFormatConfirmation_NoCc(t *testing.T) {
	t.Parallel()

	got := FormatConfirmation(&email.Message{To: []string{"a@x.com"}})
	assert.Contains(t, got, "To: a@x.com\nCc: \n")
}

func TestConfirm(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "yes", input: "y\n", want: true},
		{name: "empty line accepts", input: "\n", want: true},
		{name: "anything else accepts", input: "sure\n", want: true},
		{name: "no", input: "n\n", want: false},
		{name: "upper no", input: "NO\n", want: false},
		{name: "nope", input: "nope\r\n", want: false},
		{name: "leading space is not no", input: " n\n", want: true},
		{name: "no without newline", input: "n", want: false},
		{name: "end of input declines", input: "", want: false},
		{name: "only first line read", input: "y\nn\n", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var out bytes.Buffer
			ok, err := Confirm(context.Background(), strings.NewReader(tt.input), &out)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.Equal(t, Prompt, out.String())
		})
	}
}

func TestConfirm_Cancelled(t *testing.T) {
	t.Parallel()

	in := blockingReader{release: make(chan struct{})}
	defer close(in.release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	ok, err := Confirm(ctx, in, &out)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}
