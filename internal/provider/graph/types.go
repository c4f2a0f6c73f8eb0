// Package graph implements a Provider that sends emails via the Microsoft Graph API.
package graph

import (
	"github.com/shineum/send-email-message/internal/email"
)

// sendMailRequest is the top-level request body for the Graph API sendMail endpoint.
type sendMailRequest struct {
	Message         sendMailMessage `json:"message"`
	SaveToSentItems bool            `json:"saveToSentItems"`
}

// sendMailMessage represents the message portion of a sendMail request.
type sendMailMessage struct {
	Subject       string      `json:"subject"`
	Body          messageBody `json:"body"`
	From          *recipient  `json:"from,omitempty"`
	ToRecipients  []recipient `json:"toRecipients"`
	CcRecipients  []recipient `json:"ccRecipients,omitempty"`
	BccRecipients []recipient `json:"bccRecipients,omitempty"`
}

type messageBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type recipient struct {
	EmailAddress emailAddress `json:"emailAddress"`
}

type emailAddress struct {
	Address string `json:"address"`
}

// tokenResponse represents the OAuth2 token endpoint response.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// graphErrorResponse represents an error response from the Graph API.
type graphErrorResponse struct {
	Error graphError `json:"error"`
}

type graphError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// buildSendMailRequest converts a message into a Graph API sendMail request
// body. The mailbox owner sends; a different message From is sent as the
// "from" field, which requires send-as permission on that address.
func buildSendMailRequest(sender string, msg *email.Message) *sendMailRequest {
	var from *recipient
	if msg.From != "" && msg.From != sender {
		from = &recipient{EmailAddress: emailAddress{Address: msg.From}}
	}

	return &sendMailRequest{
		Message: sendMailMessage{
			Subject: msg.Subject,
			Body: messageBody{
				ContentType: "text",
				Content:     msg.Body,
			},
			From:          from,
			ToRecipients:  toRecipients(msg.To),
			CcRecipients:  toRecipients(msg.Cc),
			BccRecipients: toRecipients(msg.Bcc),
		},
		SaveToSentItems: true,
	}
}

func toRecipients(addrs []string) []recipient {
	out := make([]recipient, 0, len(addrs))
	for _, addr := range addrs {
		out = append(out, recipient{EmailAddress: emailAddress{Address: addr}})
	}
	return out
}
