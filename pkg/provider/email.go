package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mrz1836/postmark"

	"github.com/pingline/pingline/pkg/notification"
)

// EmailConfig holds Postmark credentials. Tokens are optional so development
// environments can route email to the dev sender instead.
type EmailConfig struct {
	ServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	AccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail  string `env:"NOTIFY_SENDER_EMAIL"`
	Subject      string `env:"NOTIFY_EMAIL_SUBJECT" envDefault:"Notification"`
	// DevDir routes email to JSON files on disk instead of Postmark when set.
	DevDir string `env:"NOTIFY_EMAIL_DEV_DIR"`
}

// emailSender is the subset of the Postmark client the adapter uses.
type emailSender interface {
	SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error)
}

// Email delivers notifications over transactional email. It is outbound-only:
// there is no inbound webhook to verify or parse.
type Email struct {
	client emailSender
	cfg    EmailConfig
}

// NewEmail creates the email adapter. With DevDir set the adapter writes
// messages to disk; otherwise it talks to Postmark.
func NewEmail(cfg EmailConfig) *Email {
	e := &Email{cfg: cfg}
	if cfg.DevDir == "" && cfg.ServerToken != "" {
		e.client = postmark.NewClient(cfg.ServerToken, cfg.AccountToken)
	}
	return e
}

// newEmailWithClient is used by tests to inject a fake Postmark client.
func newEmailWithClient(client emailSender, cfg EmailConfig) *Email {
	return &Email{client: client, cfg: cfg}
}

func (e *Email) Name() string                  { return "postmark" }
func (e *Email) Channel() notification.Channel { return notification.ChannelEmail }

func (e *Email) Send(ctx context.Context, to, body, mediaURL string) error {
	if mediaURL != "" {
		body = body + "\n\n" + mediaURL
	}

	if e.cfg.DevDir != "" {
		return e.writeDev(to, body)
	}
	if e.client == nil || e.cfg.SenderEmail == "" {
		return fmt.Errorf("%w: postmark credentials missing", ErrNotConfigured)
	}

	resp, err := e.client.SendEmail(ctx, postmark.Email{
		From:     e.cfg.SenderEmail,
		To:       to,
		Subject:  e.cfg.Subject,
		TextBody: body,
	})
	if err != nil {
		return transportError("postmark", err)
	}
	if resp.ErrorCode > 0 {
		return fmt.Errorf("%w: postmark error %d: %s", ErrProviderRejected, resp.ErrorCode, resp.Message)
	}
	return nil
}

// writeDev drops the message as a JSON file so local runs need no Postmark
// account.
func (e *Email) writeDev(to, body string) error {
	if err := os.MkdirAll(e.cfg.DevDir, 0o755); err != nil {
		return fmt.Errorf("%w: dev mail dir: %v", ErrProviderRejected, err)
	}

	name := fmt.Sprintf("%s_email.json", time.Now().Format("2006_01_02_150405.000"))
	raw, err := json.MarshalIndent(map[string]string{
		"to":   to,
		"body": body,
		"at":   time.Now().Format(time.RFC3339),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: dev mail: %v", ErrProviderRejected, err)
	}
	if err := os.WriteFile(filepath.Join(e.cfg.DevDir, name), raw, 0o644); err != nil {
		return fmt.Errorf("%w: dev mail: %v", ErrProviderRejected, err)
	}
	return nil
}

func (e *Email) VerifyWebhook(WebhookRequest) error { return ErrInboundUnsupported }

func (e *Email) ParseIncoming(map[string]any) *Message { return nil }
