// Package ses implements a Provider that sends emails via AWS SES v2.
package ses

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/shineum/send-email-message/internal/email"
)

// maxRetries is the maximum number of retry attempts for transient failures.
const maxRetries = 3

// baseRetryDelay is the initial delay for exponential backoff.
const baseRetryDelay = 1 * time.Second

// SESProviderConfig holds the configuration for creating a SESProvider.
type SESProviderConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string

	// Sender is an optional verified identity. When set it replaces the
	// message From, which is kept as Reply-To.
	Sender string
}

// SESProvider sends emails via the AWS SES v2 API.
type SESProvider struct {
	sender     string
	client     SendEmailAPI
	retryDelay time.Duration
}

// SendEmailAPI is the interface for the SES v2 SendEmail operation.
// Used for testing with mock implementations.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// New creates a new SESProvider with the given configuration.
func New(ctx context.Context, cfg SESProviderConfig) (*SESProvider, error) {
	var opts []func(*awsconfig.LoadOptions) error

	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESProvider{
		sender:     cfg.Sender,
		client:     sesv2.NewFromConfig(awsCfg),
		retryDelay: baseRetryDelay,
	}, nil
}

// NewWithClient creates a SESProvider with a custom client, used for testing.
func NewWithClient(sender string, client SendEmailAPI) *SESProvider {
	return &SESProvider{
		sender:     sender,
		client:     client,
		retryDelay: baseRetryDelay,
	}
}

// Send delivers an email message via AWS SES v2, retrying failed calls
// with exponential backoff.
func (s *SESProvider) Send(ctx context.Context, msg *email.Message) error {
	input := buildInput(s.sender, msg)

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			slog.Debug("retrying SES API request",
				"attempt", attempt,
				"max_retries", maxRetries,
			)
			delay := backoffDelay(s.retryDelay, attempt)
			if err := sleepWithContext(ctx, delay); err != nil {
				return fmt.Errorf("context cancelled during retry wait: %w", err)
			}
		}

		out, err := s.client.SendEmail(ctx, input)
		if err == nil {
			if out != nil && out.MessageId != nil {
				slog.Debug("SES accepted message", "message_id", *out.MessageId)
			}
			return nil
		}

		lastErr = err
		slog.Warn("SES API error",
			"attempt", attempt,
			"error", err,
		)
	}

	return fmt.Errorf("SES API request failed after %d retries: %w", maxRetries, lastErr)
}

// Name returns the provider name.
func (s *SESProvider) Name() string {
	return "ses"
}

// buildInput creates a SES SendEmailInput with simple text content.
func buildInput(sender string, msg *email.Message) *sesv2.SendEmailInput {
	from := msg.From
	var replyTo []string
	if sender != "" {
		from = sender
		if msg.From != "" && msg.From != sender {
			replyTo = []string{msg.From}
		}
	}

	return &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		ReplyToAddresses: replyTo,
		Destination: &types.Destination{
			ToAddresses:  msg.To,
			CcAddresses:  msg.Cc,
			BccAddresses: msg.Bcc,
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(msg.Subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Text: &types.Content{
						Data:    aws.String(msg.Body),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}
}

// backoffDelay returns the exponential backoff delay before retry attempt n
// (1-based): base, 2*base, 4*base.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	return delay
}

// sleepWithContext waits for the specified duration or until the context is cancelled.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
