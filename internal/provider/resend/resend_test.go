package resend

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/resend/resend-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shineum/send-email-message/internal/email"
)

type fakeEmails struct {
	err  error
	last *resend.SendEmailRequest
}

func (f *fakeEmails) SendWithContext(_ context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	f.last = params
	if f.err != nil {
		return nil, f.err
	}
	return &resend.SendEmailResponse{Id: "re_123"}, nil
}

func TestSend_MapsMessageFields(t *testing.T) {
	t.Parallel()

	fake := &fakeEmails{}
	p := NewWithClient(fake)

	err := p.Send(context.Background(), &email.Message{
		From:    "webmaster@example.com",
		To:      []string{"alice@example.com"},
		Cc:      []string{"carol@example.com"},
		Bcc:     []string{"dave@example.com"},
		Subject: "Hello",
		Body:    "Plain body",
	})
	require.NoError(t, err)
	require.NotNil(t, fake.last)

	assert.Equal(t, "webmaster@example.com", fake.last.From)
	assert.Equal(t, []string{"alice@example.com"}, fake.last.To)
	assert.Equal(t, []string{"carol@example.com"}, fake.last.Cc)
	assert.Equal(t, []string{"dave@example.com"}, fake.last.Bcc)
	assert.Equal(t, "Hello", fake.last.Subject)
	assert.Equal(t, "Plain body", fake.last.Text)
	assert.Empty(t, fake.last.Html)
}

func TestSend_WrapsAPIError(t *testing.T) {
	t.Parallel()

	cause := errors.New("422 validation_error")
	p := NewWithClient(&fakeEmails{err: cause})

	err := p.Send(context.Background(), &email.Message{From: "a@example.com", To: []string{"b@example.com"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
}

func TestNew_RequiresKey(t *testing.T) {
	t.Parallel()

	_, err := New(ResendProviderConfig{})
	assert.Error(t, err)
}

func TestNew_WithAPIKey(t *testing.T) {
	t.Parallel()

	p, err := New(ResendProviderConfig{APIKey: "re_test"})
	require.NoError(t, err)
	assert.Equal(t, "resend", p.Name())
}

func TestReadKeyFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	keyPath := filepath.Join(dir, "resend.key")
	require.NoError(t, os.WriteFile(keyPath, []byte("  re_abc123\r\n"), 0o600))

	emptyPath := filepath.Join(dir, "empty.key")
	require.NoError(t, os.WriteFile(emptyPath, []byte("\n"), 0o600))

	key, err := readKeyFile(keyPath)
	require.NoError(t, err)
	assert.Equal(t, "re_abc123", key)

	_, err = readKeyFile(emptyPath)
	assert.Error(t, err)

	_, err = readKeyFile(filepath.Join(dir, "missing.key"))
	assert.Error(t, err)
}

func TestNew_WithKeyFile(t *testing.T) {
	t.Parallel()

	keyPath := filepath.Join(t.TempDir(), "resend.key")
	require.NoError(t, os.WriteFile(keyPath, []byte("re_from_file\n"), 0o600))

	p, err := New(ResendProviderConfig{KeyPath: keyPath})
	require.NoError(t, err)
	assert.NotNil(t, p.emails)
}
