package smtptest

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/shineum/send-email-message/internal/email"
)

// Message is a received message decoded back into its header and the
// fields of an email.Message. Bcc is never set because relays do not see
// the header.
type Message struct {
	email.Message
	Header mail.Header
}

// Parse decodes the raw DATA of an envelope. Only single-part text/plain
// messages are supported.
func (e Envelope) Parse() (*Message, error) {
	return Parse(e.Data)
}

// Parse decodes a raw RFC 5322 text/plain message.
func Parse(raw []byte) (*Message, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	mediaType, _, err := mime.ParseMediaType(contentType(msg.Header))
	if err != nil {
		return nil, fmt.Errorf("failed to parse content type: %w", err)
	}
	if mediaType != "text/plain" {
		return nil, fmt.Errorf("unsupported content type %q", mediaType)
	}

	body, err := decodeBody(msg.Body, msg.Header.Get("Content-Transfer-Encoding"))
	if err != nil {
		return nil, fmt.Errorf("failed to read message body: %w", err)
	}

	dec := new(mime.WordDecoder)
	subject, err := dec.DecodeHeader(msg.Header.Get("Subject"))
	if err != nil {
		return nil, fmt.Errorf("failed to decode subject: %w", err)
	}

	return &Message{
		Message: email.Message{
			Subject: subject,
			Body:    strings.ReplaceAll(string(body), "\r\n", "\n"),
			From:    firstAddress(msg.Header, "From"),
			To:      addressList(msg.Header, "To"),
			Cc:      addressList(msg.Header, "Cc"),
		},
		Header: msg.Header,
	}, nil
}

func contentType(h mail.Header) string {
	if ct := h.Get("Content-Type"); ct != "" {
		return ct
	}
	return "text/plain"
}

func decodeBody(r io.Reader, encoding string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "quoted-printable":
		r = quotedprintable.NewReader(r)
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, r)
	}
	return io.ReadAll(r)
}

func addressList(h mail.Header, key string) []string {
	list, err := h.AddressList(key)
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, addr := range list {
		out = append(out, addr.Address)
	}
	return out
}

func firstAddress(h mail.Header, key string) string {
	if list := addressList(h, key); len(list) > 0 {
		return list[0]
	}
	return h.Get(key)
}
