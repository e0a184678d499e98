package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pingline/pingline/pkg/notification"
)

// MessengerConfig holds Facebook Messenger credentials. The legacy Graph
// webhook signs with SHA1, unlike WhatsApp Cloud's SHA256.
type MessengerConfig struct {
	PageAccessToken  string `env:"MESSENGER_PAGE_ACCESS_TOKEN"`
	AppSecret        string `env:"MESSENGER_APP_SECRET"`
	VerifyToken      string `env:"MESSENGER_VERIFY_TOKEN"`
	APIBaseURL       string `env:"MESSENGER_API_BASE_URL" envDefault:"https://graph.facebook.com/v19.0"`
	EnforceSignature bool   `env:"MESSENGER_ENFORCE_SIGNATURE" envDefault:"true"`
}

// Messenger sends messages through the Facebook Send API.
type Messenger struct {
	cfg  MessengerConfig
	opts clientOptions
}

// NewMessenger creates a Messenger adapter.
func NewMessenger(cfg MessengerConfig, opts ...Option) *Messenger {
	return &Messenger{cfg: cfg, opts: newClientOptions(opts...)}
}

func (m *Messenger) Name() string                  { return "messenger" }
func (m *Messenger) Channel() notification.Channel { return notification.ChannelMessenger }

// VerifySubscription answers the Graph webhook registration handshake.
func (m *Messenger) VerifySubscription(mode, token, challenge string) (string, bool) {
	if mode != "subscribe" || m.cfg.VerifyToken == "" {
		return "", false
	}
	if !secureEqual(m.cfg.VerifyToken, token) {
		return "", false
	}
	return challenge, true
}

func (m *Messenger) Send(ctx context.Context, to, body, mediaURL string) error {
	if m.cfg.PageAccessToken == "" {
		return fmt.Errorf("%w: messenger page token missing", ErrNotConfigured)
	}
	if err := m.opts.wait(ctx); err != nil {
		return err
	}

	message := map[string]any{"text": body}
	if mediaURL != "" {
		message = map[string]any{
			"attachment": map[string]any{
				"type":    "image",
				"payload": map[string]any{"url": mediaURL, "is_reusable": true},
			},
		}
	}
	payload := map[string]any{
		"recipient": map[string]any{"id": to},
		"message":   message,
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: messenger: %v", ErrProviderRejected, err)
	}

	endpoint := fmt.Sprintf("%s/me/messages?access_token=%s", m.cfg.APIBaseURL, m.cfg.PageAccessToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%w: messenger: %v", ErrProviderRejected, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.opts.client.Do(req)
	if err != nil {
		return transportError("messenger", err)
	}
	return classifyResponse("messenger", resp)
}

// VerifyWebhook checks X-Hub-Signature: "sha1=" plus the hex HMAC-SHA1 of the
// raw body keyed with the app secret.
func (m *Messenger) VerifyWebhook(req WebhookRequest) error {
	header := req.Header.Get("X-Hub-Signature")
	return verifyPrefixedDigest(header, "sha1=", m.cfg.AppSecret, req.Body, m.cfg.EnforceSignature)
}

// ParseIncoming walks entry[0].messaging[0] for the sender id and message
// text.
func (m *Messenger) ParseIncoming(payload map[string]any) *Message {
	entry, ok := firstElem(payload, "entry")
	if !ok {
		return nil
	}
	messaging, ok := firstElem(entry, "messaging")
	if !ok {
		return nil
	}
	sender, ok := nested(messaging, "sender")
	if !ok {
		return nil
	}
	senderID, ok := stringField(sender, "id")
	if !ok {
		return nil
	}
	message, ok := nested(messaging, "message")
	if !ok {
		return nil
	}
	text, ok := stringField(message, "text")
	if !ok {
		return nil
	}

	return &Message{
		Platform: string(m.Channel()),
		UserID:   senderID,
		Text:     text,
		Raw:      payload,
	}
}
