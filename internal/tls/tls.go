// Package tls builds client TLS configuration for outbound SMTP connections.
package tls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// ClientOptions describes how to verify the relay and, optionally, which
// client certificate to present.
type ClientOptions struct {
	// ServerName is checked against the relay certificate.
	ServerName string

	// CAFile is a PEM bundle added to the system roots. Empty means system
	// roots only.
	CAFile string

	// CertFile and KeyFile configure a client certificate. Both or neither.
	CertFile string
	KeyFile  string

	InsecureSkipVerify bool
}

// ClientConfig loads the files named in opts and returns a tls.Config ready
// for use by an SMTP dialer.
func ClientConfig(opts ClientOptions) (*tls.Config, error) {
	cfg := &tls.Config{
		ServerName:         opts.ServerName,
		InsecureSkipVerify: opts.InsecureSkipVerify,
		MinVersion:         tls.VersionTLS12,
	}

	if opts.CAFile != "" {
		pool, err := loadCertPool(opts.CAFile)
		if err != nil {
			return nil, err
		}
		cfg.RootCAs = pool
	}

	if (opts.CertFile == "") != (opts.KeyFile == "") {
		return nil, fmt.Errorf("client certificate requires both cert and key files")
	}

	if opts.CertFile != "" {
		// Validate that files exist before attempting to load
		if _, err := os.Stat(opts.CertFile); err != nil {
			return nil, fmt.Errorf("certificate file not found: %w", err)
		}
		if _, err := os.Stat(opts.KeyFile); err != nil {
			return nil, fmt.Errorf("key file not found: %w", err)
		}

		cert, err := tls.LoadX509KeyPair(opts.CertFile, opts.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS key pair: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	return cfg, nil
}

// loadCertPool returns the system pool extended with the certificates in path.
func loadCertPool(path string) (*x509.CertPool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}

	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}

	if !pool.AppendCertsFromPEM(data) {
		return nil, fmt.Errorf("no certificates found in CA file %s", path)
	}
	return pool, nil
}
