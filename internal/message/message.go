// Package message turns command-line input into a validated email.Message,
// optionally confirms it with the operator and hands it to a provider.
package message

import (
	"strings"

	"github.com/samber/lo"
)

// StdinMarker as the message source reads the body from standard input.
const StdinMarker = "-"

// GroupToken names an address group resolved through the AddressBook.
type GroupToken string

const (
	Admins   GroupToken = "ADMINS"
	Managers GroupToken = "MANAGERS"
)

// ParseGroupToken reports whether s is a group token. Matching is exact.
func ParseGroupToken(s string) (GroupToken, bool) {
	switch GroupToken(s) {
	case Admins, Managers:
		return GroupToken(s), true
	}
	return "", false
}

func isGroupToken(s string, _ int) bool {
	_, ok := ParseGroupToken(s)
	return ok
}

// AddressBook supplies the sender defaults and group members.
type AddressBook interface {
	Lookup(group string) []string
	DefaultFromAddress() string
	SubjectPrefix() string
}

// Options is the raw input of one invocation.
type Options struct {
	Subject string
	// Message is a literal body, the path of a regular file or StdinMarker.
	Message    string
	Recipients []string
	Cc         []string
	Bcc        []string

	// From overrides the AddressBook default sender when non-empty.
	From         string
	NoPrefix     bool
	FailSilently bool
	Interactive  bool
	Verbosity    int
}

// SplitAddressList splits a comma separated flag value and trims each entry.
// Empty entries are kept so that validation reports them.
func SplitAddressList(s string) []string {
	if s == "" {
		return nil
	}
	return lo.Map(strings.Split(s, ","), func(item string, _ int) string {
		return strings.TrimSpace(item)
	})
}
