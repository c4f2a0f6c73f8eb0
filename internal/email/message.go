// Package email defines the outgoing message model shared by the builder and
// the delivery providers.
package email

// Message is a fully resolved outgoing email. Every address in To, Cc and Bcc
// has been validated before a Message reaches a provider.
type Message struct {
	Subject string
	Body    string
	From    string
	To      []string
	Cc      []string
	Bcc     []string

	// FailSilently suppresses delivery failures instead of surfacing them.
	FailSilently bool
}

// Recipients returns every envelope recipient in To, Cc, Bcc order.
// Duplicates are kept.
func (m *Message) Recipients() []string {
	all := make([]string, 0, len(m.To)+len(m.Cc)+len(m.Bcc))
	all = append(all, m.To...)
	all = append(all, m.Cc...)
	all = append(all, m.Bcc...)
	return all
}
