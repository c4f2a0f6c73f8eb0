// Package address implements syntactic email address validation.
//
// The rules follow the common web-framework validator: the address is split on
// its last "@", the user part must be a dot-atom or a quoted string, and the
// domain part must be a dotted host name, an allowlisted name such as
// "localhost", or a bracketed IP literal. Internationalized domains are checked
// again after punycode conversion.
package address

import (
	"net/netip"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

// maxLength is the longest address accepted, in characters.
const maxLength = 320

type ValidationError string

func (e ValidationError) Error() string {
	return string(e)
}

const (
	ErrEmpty         = ValidationError("address is empty")
	ErrTooLong       = ValidationError("address exceeds maximum length")
	ErrMissingAt     = ValidationError("address is missing @")
	ErrInvalidUser   = ValidationError("user part is invalid")
	ErrInvalidDomain = ValidationError("domain part is invalid")
)

var (
	userPattern = regexp.MustCompile(
		"(?i)^[-!#$%&'*+/=?^_`{}|~0-9A-Z]+(\\.[-!#$%&'*+/=?^_`{}|~0-9A-Z]+)*$" +
			`|^"([\x01-\x08\x0b\x0c\x0e-\x1f!#-\[\]-\x7f]|\\[\x01-\x09\x0b\x0c\x0e-\x7f])*"$`,
	)
	domainPattern  = regexp.MustCompile(`(?i)^(?:[A-Z0-9](?:[A-Z0-9-]{0,61}[A-Z0-9])?\.)+[A-Z0-9-]{2,63}$`)
	literalPattern = regexp.MustCompile(`(?i)^\[([A-F0-9:.]+)\]$`)
)

// domainAllowlist holds domains accepted without a dot.
var domainAllowlist = map[string]bool{
	"localhost": true,
}

// Validate reports whether addr is a syntactically valid email address.
func Validate(addr string) error {
	if addr == "" {
		return ErrEmpty
	}
	if utf8.RuneCountInString(addr) > maxLength {
		return ErrTooLong
	}

	at := strings.LastIndex(addr, "@")
	if at < 0 {
		return ErrMissingAt
	}
	user, domain := addr[:at], addr[at+1:]

	if !userPattern.MatchString(user) {
		return ErrInvalidUser
	}

	if domainAllowlist[domain] || validDomain(domain) {
		return nil
	}

	ascii, err := idna.Punycode.ToASCII(domain)
	if err == nil && ascii != domain && validDomain(ascii) {
		return nil
	}

	return ErrInvalidDomain
}

// IsValid is a convenience wrapper around Validate.
func IsValid(addr string) bool {
	return Validate(addr) == nil
}

func validDomain(domain string) bool {
	if domainPattern.MatchString(domain) {
		// The top-level label may not end with a hyphen.
		return !strings.HasSuffix(domain, "-")
	}

	m := literalPattern.FindStringSubmatch(domain)
	if m == nil {
		return false
	}
	_, err := netip.ParseAddr(m[1])
	return err == nil
}
