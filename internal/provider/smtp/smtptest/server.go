// Package smtptest provides an in-process SMTP relay for exercising SMTP
// clients in tests. It accepts every transaction and records the envelope and
// raw message data.
package smtptest

import (
	"log/slog"
	"net"
	"strconv"
	"sync"
)

// Options configures a Server.
type Options struct {
	// Username and Password enable AUTH PLAIN and LOGIN. When both are empty
	// authentication is neither advertised nor required.
	Username string
	Password string

	// RejectCode, when non-zero, is returned in reply to DATA instead of
	// accepting the message.
	RejectCode int
}

// Envelope is one accepted transaction.
type Envelope struct {
	From string
	To   []string
	Data []byte
}

// Server is a loopback SMTP relay.
type Server struct {
	opts     Options
	auth     *authenticator
	listener net.Listener

	mu       sync.Mutex
	received []Envelope

	wg sync.WaitGroup
}

// NewServer starts a relay on a random loopback port.
func NewServer(opts Options) (*Server, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	s := &Server{
		opts:     opts,
		auth:     newAuthenticator(opts.Username, opts.Password),
		listener: ln,
	}

	s.wg.Add(1)
	go s.serve()
	return s, nil
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			newSession(conn, s).handle()
		}()
	}
}

// Host returns the listener IP.
func (s *Server) Host() string {
	host, _, _ := net.SplitHostPort(s.listener.Addr().String())
	return host
}

// Port returns the listener port.
func (s *Server) Port() int {
	_, port, _ := net.SplitHostPort(s.listener.Addr().String())
	n, _ := strconv.Atoi(port)
	return n
}

// Received returns a copy of the accepted transactions.
func (s *Server) Received() []Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Envelope(nil), s.received...)
}

func (s *Server) record(env Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received = append(s.received, env)
	slog.Debug("smtptest accepted message", "from", env.From, "rcpt", len(env.To))
}

// Close stops accepting connections and waits for open sessions.
func (s *Server) Close() {
	s.listener.Close()
	s.wg.Wait()
}
