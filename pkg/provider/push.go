package provider

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/pingline/pingline/pkg/notification"
)

// PushConfig holds Firebase Cloud Messaging settings. The recipient address
// for this channel is the device registration token.
type PushConfig struct {
	CredentialsFile string `env:"FCM_CREDENTIALS_FILE"`
	ProjectID       string `env:"FCM_PROJECT_ID"`
}

// fcmSender is the subset of the FCM messaging client the adapter uses.
type fcmSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// Push delivers notifications through Firebase Cloud Messaging. Outbound
// only: engagement for push comes back through TrackEngagement, not webhooks.
type Push struct {
	client fcmSender
	title  string
}

// NewPush initializes the Firebase app and messaging client.
func NewPush(ctx context.Context, cfg PushConfig) (*Push, error) {
	if cfg.CredentialsFile == "" {
		return nil, fmt.Errorf("%w: fcm credentials file missing", ErrNotConfigured)
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID},
		option.WithCredentialsFile(cfg.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("%w: firebase app: %v", ErrNotConfigured, err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: fcm client: %v", ErrNotConfigured, err)
	}
	return &Push{client: client}, nil
}

// NewPushWithClient wraps an existing messaging client, mainly for tests.
func NewPushWithClient(client fcmSender) *Push {
	return &Push{client: client}
}

func (p *Push) Name() string                  { return "fcm" }
func (p *Push) Channel() notification.Channel { return notification.ChannelPush }

func (p *Push) Send(ctx context.Context, to, body, mediaURL string) error {
	if p.client == nil {
		return fmt.Errorf("%w: fcm client missing", ErrNotConfigured)
	}

	msg := &messaging.Message{
		Token: to,
		Notification: &messaging.Notification{
			Body:     body,
			ImageURL: mediaURL,
		},
	}

	if _, err := p.client.Send(ctx, msg); err != nil {
		return classifyFCMError(err)
	}
	return nil
}

// classifyFCMError maps FCM errors onto the taxonomy. Unregistered tokens are
// permanent rejections; capacity and backend faults are transient.
func classifyFCMError(err error) error {
	switch {
	case messaging.IsUnavailable(err), messaging.IsInternal(err), messaging.IsQuotaExceeded(err):
		return fmt.Errorf("%w: fcm: %v", ErrProviderUnavailable, err)
	case messaging.IsUnregistered(err), messaging.IsInvalidArgument(err):
		return fmt.Errorf("%w: fcm: %v", ErrProviderRejected, err)
	default:
		return transportError("fcm", err)
	}
}

func (p *Push) VerifyWebhook(WebhookRequest) error { return ErrInboundUnsupported }

func (p *Push) ParseIncoming(map[string]any) *Message { return nil }
