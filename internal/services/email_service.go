package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/vaultgate/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// LockoutNotifier tells a user that their vault PIN was locked out
type LockoutNotifier interface {
	NotifyLockout(ctx context.Context, recipient string, until time.Time) error
}

// SESSender is the part of the SES client used for sending
type SESSender interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESLockoutNotifier sends lockout alerts using AWS SES
type SESLockoutNotifier struct {
	client      SESSender
	fromAddress string
	logger      *slog.Logger
}

// NewSESLockoutNotifier loads the default AWS configuration for region
func NewSESLockoutNotifier(ctx context.Context, region, fromAddress string, logger *slog.Logger) (*SESLockoutNotifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewSESLockoutNotifierWithClient(ses.NewFromConfig(cfg), fromAddress, logger), nil
}

// NewSESLockoutNotifierWithClient wraps an existing client
func NewSESLockoutNotifierWithClient(client SESSender, fromAddress string, logger *slog.Logger) *SESLockoutNotifier {
	return &SESLockoutNotifier{
		client:      client,
		fromAddress: fromAddress,
		logger:      logger,
	}
}

// NotifyLockout sends the alert
func (n *SESLockoutNotifier) NotifyLockout(ctx context.Context, recipient string, until time.Time) error {
	textBody := fmt.Sprintf(`Vault PIN locked

Your vault PIN was entered incorrectly too many times. PIN entry is suspended until %s.

If this was not you, someone may have access to your signed-in session. Sign out of all devices and change your password.

This is an automated message. Please do not reply to this email.
`, until.UTC().Format(time.RFC1123))

	input := &ses.SendEmailInput{
		Source: aws.String(n.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{recipient},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String("Your vault PIN was locked"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := n.client.SendEmail(ctx, input)
	if err != nil {
		n.logger.Error("failed to send lockout alert via SES",
			slog.String("email", logger.SanitizedEmail(recipient)),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	n.logger.Info("lockout alert sent",
		slog.String("email", logger.SanitizedEmail(recipient)),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}

// LogLockoutNotifier only logs. Used when no sender address is configured.
type LogLockoutNotifier struct {
	logger *slog.Logger
}

func NewLogLockoutNotifier(logger *slog.Logger) *LogLockoutNotifier {
	return &LogLockoutNotifier{logger: logger}
}

func (n *LogLockoutNotifier) NotifyLockout(ctx context.Context, recipient string, until time.Time) error {
	n.logger.Info("lockout alert (email disabled)",
		slog.String("email", logger.SanitizedEmail(recipient)),
		slog.Time("until", until))
	return nil
}
