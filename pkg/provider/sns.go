package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/aws/smithy-go"

	"github.com/pingline/pingline/pkg/notification"
)

// SNSConfig holds AWS SNS SMS settings. WebhookSecret is the shared secret
// the inbound forwarding bridge signs two-way SMS callbacks with.
type SNSConfig struct {
	Region           string `env:"AWS_SNS_REGION" envDefault:"us-east-1"`
	AccessKeyID      string `env:"AWS_SNS_ACCESS_KEY_ID"`
	SecretAccessKey  string `env:"AWS_SNS_SECRET_ACCESS_KEY"`
	SenderID         string `env:"AWS_SNS_SENDER_ID"`
	WebhookSecret    string `env:"AWS_SNS_WEBHOOK_SECRET"`
	EnforceSignature bool   `env:"AWS_SNS_ENFORCE_SIGNATURE" envDefault:"true"`
}

// SNSPublisher is the subset of the SNS client used by the adapter.
type SNSPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSSMS sends SMS by publishing directly to a phone number via AWS SNS.
// It is the legacy SMS carrier; the registry prefers Twilio when both are
// configured.
type SNSSMS struct {
	client  SNSPublisher
	cfg     SNSConfig
	limiter clientOptions
}

// NewSNSClient builds an SNS client from the adapter config, falling back to
// the ambient AWS credential chain when no static keys are set.
func NewSNSClient(ctx context.Context, cfg SNSConfig) (*sns.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: aws config: %v", ErrNotConfigured, err)
	}
	return sns.NewFromConfig(awsCfg), nil
}

// NewSNSSMS creates the SNS SMS adapter around an already constructed client.
func NewSNSSMS(client SNSPublisher, cfg SNSConfig, opts ...Option) *SNSSMS {
	return &SNSSMS{client: client, cfg: cfg, limiter: newClientOptions(opts...)}
}

func (s *SNSSMS) Name() string                  { return "sns" }
func (s *SNSSMS) Channel() notification.Channel { return notification.ChannelSMS }

func (s *SNSSMS) Send(ctx context.Context, to, body, mediaURL string) error {
	if s.client == nil {
		return fmt.Errorf("%w: sns client missing", ErrNotConfigured)
	}
	if err := s.limiter.wait(ctx); err != nil {
		return err
	}

	// SNS SMS carries no media; fall back to appending the link.
	if mediaURL != "" {
		body = body + " " + mediaURL
	}

	attrs := map[string]types.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": {
			DataType:    aws.String("String"),
			StringValue: aws.String("Transactional"),
		},
	}
	if s.cfg.SenderID != "" {
		attrs["AWS.SNS.SMS.SenderID"] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(s.cfg.SenderID),
		}
	}

	_, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber:       aws.String(to),
		Message:           aws.String(body),
		MessageAttributes: attrs,
	})
	if err != nil {
		return classifySNSError(err)
	}
	return nil
}

// classifySNSError maps smithy API errors onto the taxonomy: throttling and
// internal faults are transient, everything else is a rejection.
func classifySNSError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "Throttling", "ThrottledException", "InternalError", "InternalErrorException", "ServiceUnavailable":
			return fmt.Errorf("%w: sns: %s", ErrProviderUnavailable, apiErr.ErrorCode())
		default:
			return fmt.Errorf("%w: sns: %s", ErrProviderRejected, apiErr.ErrorCode())
		}
	}
	return transportError("sns", err)
}

// VerifyWebhook checks the forwarding bridge signature: hex HMAC-SHA256 of
// the raw body in the X-Webhook-Signature header.
func (s *SNSSMS) VerifyWebhook(req WebhookRequest) error {
	if s.cfg.WebhookSecret == "" {
		if s.cfg.EnforceSignature {
			return fmt.Errorf("%w: sns webhook secret missing", ErrNotConfigured)
		}
		return nil
	}

	sig := req.Header.Get("X-Webhook-Signature")
	if sig == "" {
		if s.cfg.EnforceSignature {
			return ErrSignatureMissing
		}
		return nil
	}

	if !secureEqual(hmacSHA256Hex(s.cfg.WebhookSecret, req.Body), sig) {
		return ErrSignatureInvalid
	}
	return nil
}

// ParseIncoming reads the Pinpoint two-way SMS shape: originationNumber and
// messageBody.
func (s *SNSSMS) ParseIncoming(payload map[string]any) *Message {
	from, ok := stringField(payload, "originationNumber")
	if !ok {
		return nil
	}
	body, ok := stringField(payload, "messageBody")
	if !ok {
		return nil
	}

	return &Message{
		Platform: string(s.Channel()),
		UserID:   from,
		Text:     body,
		Raw:      payload,
	}
}
