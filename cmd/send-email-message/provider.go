package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/shineum/send-email-message/internal/config"
	"github.com/shineum/send-email-message/internal/provider"
	"github.com/shineum/send-email-message/internal/provider/graph"
	"github.com/shineum/send-email-message/internal/provider/resend"
	"github.com/shineum/send-email-message/internal/provider/sendgrid"
	"github.com/shineum/send-email-message/internal/provider/ses"
	"github.com/shineum/send-email-message/internal/provider/smtp"
	"github.com/shineum/send-email-message/internal/provider/stdout"
)

// selectProvider chooses the email delivery backend based on configuration.
// An explicit provider name takes precedence; otherwise the first configured
// backend in the order graph, ses, smtp, resend, sendgrid is used, falling
// back to stdout.
func selectProvider(ctx context.Context, cfg *config.Config, out io.Writer) (provider.Provider, error) {
	switch cfg.Provider {
	case "graph":
		if !cfg.GraphConfigured() {
			return nil, errors.New("graph provider selected but GRAPH_TENANT_ID, GRAPH_CLIENT_ID, GRAPH_CLIENT_SECRET and GRAPH_SENDER are required")
		}
		return newGraph(cfg), nil

	case "ses":
		if !cfg.SESConfigured() {
			return nil, errors.New("ses provider selected but SES_REGION is required")
		}
		return newSES(ctx, cfg)

	case "smtp":
		if !cfg.SMTPConfigured() {
			return nil, errors.New("smtp provider selected but SMTP_HOST is required")
		}
		return newSMTP(cfg)

	case "resend":
		if !cfg.ResendConfigured() {
			return nil, errors.New("resend provider selected but RESEND_API_KEY or RESEND_API_KEY_FILE is required")
		}
		return newResend(cfg)

	case "sendgrid":
		if !cfg.SendGridConfigured() {
			return nil, errors.New("sendgrid provider selected but SENDGRID_API_KEY is required")
		}
		return newSendGrid(cfg)

	case "stdout":
		slog.Info("using stdout provider")
		return stdout.NewWithWriter(out), nil

	case "":
		switch {
		case cfg.GraphConfigured():
			return newGraph(cfg), nil
		case cfg.SESConfigured():
			return newSES(ctx, cfg)
		case cfg.SMTPConfigured():
			return newSMTP(cfg)
		case cfg.ResendConfigured():
			return newResend(cfg)
		case cfg.SendGridConfigured():
			return newSendGrid(cfg)
		}
		slog.Info("no provider configured, using stdout provider")
		return stdout.NewWithWriter(out), nil

	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

func newGraph(cfg *config.Config) provider.Provider {
	slog.Info("using Microsoft Graph provider", "sender", cfg.Graph.Sender)
	return graph.New(graph.GraphProviderConfig{
		TenantID:     cfg.Graph.TenantID,
		ClientID:     cfg.Graph.ClientID,
		ClientSecret: cfg.Graph.ClientSecret,
		Sender:       cfg.Graph.Sender,
	})
}

func newSES(ctx context.Context, cfg *config.Config) (provider.Provider, error) {
	slog.Info("using AWS SES provider",
		"region", cfg.SES.Region,
		"sender", cfg.SES.Sender,
	)
	p, err := ses.New(ctx, ses.SESProviderConfig{
		Region:          cfg.SES.Region,
		AccessKeyID:     cfg.SES.AccessKeyID,
		SecretAccessKey: cfg.SES.SecretAccessKey,
		Sender:          cfg.SES.Sender,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create SES provider: %w", err)
	}
	return p, nil
}

func newSMTP(cfg *config.Config) (provider.Provider, error) {
	slog.Info("using SMTP provider",
		"host", cfg.SMTP.Host,
		"port", cfg.SMTP.Port,
		"ssl", cfg.SMTP.SSL,
		"starttls", cfg.SMTP.StartTLS,
	)
	p, err := smtp.New(smtp.SMTPProviderConfig{
		Host:               cfg.SMTP.Host,
		Port:               cfg.SMTP.Port,
		Username:           cfg.SMTP.Username,
		Password:           cfg.SMTP.Password,
		SSL:                cfg.SMTP.SSL,
		StartTLS:           cfg.SMTP.StartTLS,
		InsecureSkipVerify: cfg.SMTP.InsecureSkipVerify,
		CAFile:             cfg.SMTP.CAFile,
		CertFile:           cfg.SMTP.CertFile,
		KeyFile:            cfg.SMTP.KeyFile,
		Timeout:            cfg.SMTP.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create SMTP provider: %w", err)
	}
	return p, nil
}

func newResend(cfg *config.Config) (provider.Provider, error) {
	slog.Info("using Resend provider")
	p, err := resend.New(resend.ResendProviderConfig{
		APIKey:  cfg.Resend.APIKey,
		KeyPath: cfg.Resend.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Resend provider: %w", err)
	}
	return p, nil
}

func newSendGrid(cfg *config.Config) (provider.Provider, error) {
	slog.Info("using SendGrid provider")
	p, err := sendgrid.New(cfg.SendGrid.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create SendGrid provider: %w", err)
	}
	return p, nil
}
