package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// sesAPI is the slice of the SES v2 client used here, extracted for tests.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender is the platform-account fallback: all mail leaves from one
// verified SES identity instead of the user's own Gmail address. Used when a
// deployment has no Google OAuth client configured.
type SESSender struct {
	client    sesAPI
	fromEmail string
}

// NewSESSender builds the fallback sender from the ambient AWS config chain.
func NewSESSender(ctx context.Context, region, fromEmail string) (*SESSender, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &SESSender{
		client:    sesv2.NewFromConfig(awsCfg),
		fromEmail: fromEmail,
	}, nil
}

// Send performs one delivery attempt through SES. userID is ignored; SES
// sends come from the shared platform identity.
func (s *SESSender) Send(ctx context.Context, userID string, msg Message) (*SendResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	from := s.fromEmail
	if msg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", msg.FromName, s.fromEmail)
	}

	out, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject)},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.HTMLBody)},
				},
			},
		},
	})
	if err != nil {
		return &SendResult{Success: false, Reason: err.Error()}, nil
	}
	return &SendResult{Success: true, MessageID: aws.ToString(out.MessageId)}, nil
}
