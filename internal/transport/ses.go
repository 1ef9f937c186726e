package transport

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/ukaseai/brandlab/internal/config"
	"github.com/ukaseai/brandlab/internal/pkg/logger"
)

// sesAPI is the slice of the SES v2 client we call.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SES sends through AWS SES using the SDK v2.
type SES struct {
	client           sesAPI
	configurationSet string
}

// NewSES creates an SES sender. Static credentials are used when both keys
// are set; otherwise the default AWS credential chain applies.
func NewSES(ctx context.Context, cfg config.SESConfig) (*SES, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("transport: load AWS config: %w", err)
	}
	return newSES(sesv2.NewFromConfig(awsCfg), cfg.ConfigurationSet), nil
}

func newSES(client sesAPI, configurationSet string) *SES {
	return &SES{client: client, configurationSet: configurationSet}
}

// Send delivers msg as a simple HTML email.
func (s *SES) Send(ctx context.Context, msg *Message) error {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(msg.From),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")},
				},
			},
		},
	}
	if s.configurationSet != "" {
		input.ConfigurationSetName = aws.String(s.configurationSet)
	}

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		logger.Warn("[SES] send failed", "to", msg.To, "error", err)
		return fmt.Errorf("ses: %w", err)
	}

	logger.Debug("[SES] sent", "to", msg.To, "message_id", aws.ToString(out.MessageId))
	return nil
}
