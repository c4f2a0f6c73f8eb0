package smtptest

import (
	"encoding/base64"
	"errors"
	"strings"
)

var errAuthFailed = errors.New("authentication failed")

// authenticator checks AUTH PLAIN and LOGIN credentials.
type authenticator struct {
	username string
	password string
}

func newAuthenticator(username, password string) *authenticator {
	return &authenticator{username: username, password: password}
}

func (a *authenticator) enabled() bool {
	return a.username != "" || a.password != ""
}

// verifyPlain checks base64("authzid\0authcid\0password").
func (a *authenticator) verifyPlain(encoded string) error {
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return errors.New("invalid base64 encoding")
	}

	parts := strings.SplitN(string(decoded), "\x00", 3)
	if len(parts) != 3 {
		return errors.New("invalid AUTH PLAIN format")
	}
	return a.check(parts[1], parts[2])
}

// verifyLogin checks the two base64 answers of an AUTH LOGIN exchange.
func (a *authenticator) verifyLogin(encodedUser, encodedPass string) error {
	user, err := base64.StdEncoding.DecodeString(encodedUser)
	if err != nil {
		return errors.New("invalid base64 username")
	}
	pass, err := base64.StdEncoding.DecodeString(encodedPass)
	if err != nil {
		return errors.New("invalid base64 password")
	}
	return a.check(string(user), string(pass))
}

func (a *authenticator) check(user, pass string) error {
	if user != a.username || pass != a.password {
		return errAuthFailed
	}
	return nil
}
