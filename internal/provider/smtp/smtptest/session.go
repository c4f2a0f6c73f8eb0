package smtptest

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"
)

// Session states.
const (
	stateConnected = iota
	stateGreeted
	stateAuthOK
	stateMailFrom
	stateRcptTo
)

const idleTimeout = 10 * time.Second

type session struct {
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer
	server *Server
	state  int

	mailFrom string
	rcptTo   []string
}

func newSession(conn net.Conn, server *Server) *session {
	return &session{
		conn:   conn,
		reader: bufio.NewReader(conn),
		writer: bufio.NewWriter(conn),
		server: server,
		state:  stateConnected,
	}
}

func (s *session) handle() {
	defer s.conn.Close()

	s.writeLine("220 localhost ESMTP smtptest")

	for {
		if err := s.conn.SetDeadline(time.Now().Add(idleTimeout)); err != nil {
			return
		}

		line, err := s.readLine()
		if err != nil {
			if err != io.EOF {
				slog.Debug("smtptest read error", "error", err)
			}
			return
		}
		if line == "" {
			continue
		}

		cmd, arg := parseCommand(line)
		if s.handleCommand(cmd, arg) {
			return
		}
	}
}

// handleCommand returns true when the session should end.
func (s *session) handleCommand(cmd, arg string) bool {
	switch cmd {
	case "EHLO", "HELO":
		s.handleEHLO(cmd, arg)
	case "AUTH":
		s.handleAUTH(arg)
	case "MAIL":
		s.handleMAIL(arg)
	case "RCPT":
		s.handleRCPT(arg)
	case "DATA":
		s.handleDATA()
	case "RSET":
		s.resetTransaction()
		s.writeLine("250 OK")
	case "NOOP":
		s.writeLine("250 OK")
	case "QUIT":
		s.writeLine("221 Bye")
		return true
	default:
		s.writeLine("500 Unrecognized command")
	}
	return false
}

func (s *session) handleEHLO(cmd, arg string) {
	if arg == "" {
		s.writeLine("501 Syntax: %s hostname", cmd)
		return
	}

	s.state = stateGreeted
	if cmd == "HELO" {
		s.writeLine("250 localhost Hello %s", arg)
		return
	}

	s.writeLine("250-localhost Hello %s", arg)
	if s.server.auth.enabled() {
		s.writeLine("250-AUTH PLAIN LOGIN")
	}
	s.writeLine("250 OK")
}

func (s *session) handleAUTH(arg string) {
	if s.state < stateGreeted {
		s.writeLine("503 Send EHLO/HELO first")
		return
	}
	if !s.server.auth.enabled() {
		s.writeLine("503 AUTH not available")
		return
	}

	mechanism, initial, _ := strings.Cut(arg, " ")

	var err error
	switch strings.ToUpper(mechanism) {
	case "PLAIN":
		if initial == "" {
			s.writeLine("334")
			if initial, err = s.readLine(); err != nil {
				return
			}
		}
		err = s.server.auth.verifyPlain(initial)
	case "LOGIN":
		var user, pass string
		s.writeLine("334 VXNlcm5hbWU6")
		if user, err = s.readLine(); err != nil {
			return
		}
		s.writeLine("334 UGFzc3dvcmQ6")
		if pass, err = s.readLine(); err != nil {
			return
		}
		err = s.server.auth.verifyLogin(user, pass)
	default:
		s.writeLine("504 Unrecognized authentication type")
		return
	}

	if err != nil {
		s.writeLine("535 Authentication failed")
		return
	}
	s.state = stateAuthOK
	s.writeLine("235 Authentication successful")
}

func (s *session) handleMAIL(arg string) {
	if s.state < stateGreeted {
		s.writeLine("503 Send EHLO/HELO first")
		return
	}
	if s.server.auth.enabled() && s.state < stateAuthOK {
		s.writeLine("530 Authentication required")
		return
	}

	addr, ok := pathArgument(arg, "FROM:")
	if !ok {
		s.writeLine("501 Syntax: MAIL FROM:<address>")
		return
	}

	s.mailFrom = addr
	s.rcptTo = nil
	s.state = stateMailFrom
	s.writeLine("250 OK")
}

func (s *session) handleRCPT(arg string) {
	if s.state < stateMailFrom {
		s.writeLine("503 Send MAIL FROM first")
		return
	}

	addr, ok := pathArgument(arg, "TO:")
	if !ok || addr == "" {
		s.writeLine("501 Syntax: RCPT TO:<address>")
		return
	}

	s.rcptTo = append(s.rcptTo, addr)
	s.state = stateRcptTo
	s.writeLine("250 OK")
}

func (s *session) handleDATA() {
	if s.state < stateRcptTo {
		s.writeLine("503 Send RCPT TO first")
		return
	}

	s.writeLine("354 Start mail input; end with <CRLF>.<CRLF>")

	var data strings.Builder
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			return
		}
		if strings.TrimRight(line, "\r\n") == "." {
			break
		}
		// Dot-stuffing: a leading ".." carries a literal "."
		if strings.HasPrefix(line, "..") {
			line = line[1:]
		}
		data.WriteString(line)
	}

	if code := s.server.opts.RejectCode; code != 0 {
		s.writeLine("%d Message rejected", code)
		s.resetTransaction()
		return
	}

	s.server.record(Envelope{
		From: s.mailFrom,
		To:   s.rcptTo,
		Data: []byte(data.String()),
	})
	s.writeLine("250 OK message queued")
	s.resetTransaction()
}

// resetTransaction clears the envelope while keeping greeting and auth.
func (s *session) resetTransaction() {
	s.mailFrom = ""
	s.rcptTo = nil
	if s.state > stateAuthOK {
		s.state = stateAuthOK
	}
	if !s.server.auth.enabled() && s.state > stateGreeted {
		s.state = stateGreeted
	}
}

func (s *session) readLine() (string, error) {
	line, err := s.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (s *session) writeLine(format string, args ...any) {
	fmt.Fprintf(s.writer, format+"\r\n", args...)
	if err := s.writer.Flush(); err != nil {
		slog.Debug("smtptest write error", "error", err)
	}
}

// parseCommand splits an SMTP command line into the verb and its argument.
func parseCommand(line string) (string, string) {
	cmd, arg, _ := strings.Cut(line, " ")
	return strings.ToUpper(cmd), arg
}

// pathArgument extracts the address from "FROM:<addr> PARAMS" style
// arguments. An empty reverse path "<>" is valid.
func pathArgument(arg, prefix string) (string, bool) {
	if !strings.HasPrefix(strings.ToUpper(arg), prefix) {
		return "", false
	}
	rest := strings.TrimSpace(arg[len(prefix):])

	if strings.HasPrefix(rest, "<") {
		end := strings.Index(rest, ">")
		if end < 0 {
			return "", false
		}
		return rest[1:end], true
	}

	addr, _, _ := strings.Cut(rest, " ")
	return addr, addr != ""
}
