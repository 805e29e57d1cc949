package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	pkglogger "github.com/mkarsten/gatehouse/pkg/logger"
)

// SESNotifier delivers messages using AWS SES.
type SESNotifier struct {
	sesClient   *ses.Client
	fromAddress string
	logger      *slog.Logger
}

// NewSESNotifier creates a new SES-backed notifier.
func NewSESNotifier(region, fromAddress string, logger *slog.Logger) (*SESNotifier, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESNotifier{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		logger:      logger,
	}, nil
}

// Send delivers a plain-text message to the address.
func (n *SESNotifier) Send(ctx context.Context, address, subject, body string) error {
	input := &ses.SendEmailInput{
		Source: aws.String(n.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{address},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(subject),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(body),
				},
			},
		},
	}

	result, err := n.sesClient.SendEmail(ctx, input)
	if err != nil {
		n.logger.Error("failed to send email via SES",
			slog.String("address", pkglogger.SanitizedIdentifier(address)),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	n.logger.Info("notification sent",
		slog.String("address", pkglogger.SanitizedIdentifier(address)),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}
