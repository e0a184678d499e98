package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pingline/pingline/pkg/notification"
)

// WhatsAppConfig holds WhatsApp Cloud API credentials. AppSecret signs
// inbound webhooks, VerifyToken answers Meta's subscription handshake.
type WhatsAppConfig struct {
	PhoneNumberID    string `env:"WHATSAPP_PHONE_NUMBER_ID"`
	AccessToken      string `env:"WHATSAPP_ACCESS_TOKEN"`
	AppSecret        string `env:"WHATSAPP_APP_SECRET"`
	VerifyToken      string `env:"WHATSAPP_VERIFY_TOKEN"`
	APIBaseURL       string `env:"WHATSAPP_API_BASE_URL" envDefault:"https://graph.facebook.com/v19.0"`
	EnforceSignature bool   `env:"WHATSAPP_ENFORCE_SIGNATURE" envDefault:"true"`
}

// WhatsApp sends messages through the WhatsApp Cloud API and verifies Meta's
// X-Hub-Signature-256 webhook scheme.
type WhatsApp struct {
	cfg  WhatsAppConfig
	opts clientOptions
}

// NewWhatsApp creates a WhatsApp Cloud adapter.
func NewWhatsApp(cfg WhatsAppConfig, opts ...Option) *WhatsApp {
	return &WhatsApp{cfg: cfg, opts: newClientOptions(opts...)}
}

func (w *WhatsApp) Name() string                  { return "whatsapp" }
func (w *WhatsApp) Channel() notification.Channel { return notification.ChannelWhatsApp }

// VerifySubscription answers the GET handshake Meta performs when the
// webhook URL is registered. It returns the challenge to echo back, or false
// when the verify token does not match.
func (w *WhatsApp) VerifySubscription(mode, token, challenge string) (string, bool) {
	if mode != "subscribe" || w.cfg.VerifyToken == "" {
		return "", false
	}
	if !secureEqual(w.cfg.VerifyToken, token) {
		return "", false
	}
	return challenge, true
}

func (w *WhatsApp) Send(ctx context.Context, to, body, mediaURL string) error {
	if w.cfg.PhoneNumberID == "" || w.cfg.AccessToken == "" {
		return fmt.Errorf("%w: whatsapp credentials missing", ErrNotConfigured)
	}
	if err := w.opts.wait(ctx); err != nil {
		return err
	}

	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
	}
	if mediaURL != "" {
		payload["type"] = "image"
		payload["image"] = map[string]any{"link": mediaURL, "caption": body}
	} else {
		payload["type"] = "text"
		payload["text"] = map[string]any{"body": body}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: whatsapp: %v", ErrProviderRejected, err)
	}

	endpoint := fmt.Sprintf("%s/%s/messages", w.cfg.APIBaseURL, w.cfg.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%w: whatsapp: %v", ErrProviderRejected, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+w.cfg.AccessToken)

	resp, err := w.opts.client.Do(req)
	if err != nil {
		return transportError("whatsapp", err)
	}
	return classifyResponse("whatsapp", resp)
}

// VerifyWebhook checks X-Hub-Signature-256: "sha256=" plus the hex
// HMAC-SHA256 of the raw body keyed with the app secret.
func (w *WhatsApp) VerifyWebhook(req WebhookRequest) error {
	header := req.Header.Get("X-Hub-Signature-256")
	return verifyPrefixedDigest(header, "sha256=", w.cfg.AppSecret, req.Body, w.cfg.EnforceSignature)
}

// ParseIncoming walks the Cloud API envelope down to the first message:
// entry[0].changes[0].value.messages[0].
func (w *WhatsApp) ParseIncoming(payload map[string]any) *Message {
	entry, ok := firstElem(payload, "entry")
	if !ok {
		return nil
	}
	change, ok := firstElem(entry, "changes")
	if !ok {
		return nil
	}
	value, ok := nested(change, "value")
	if !ok {
		return nil
	}
	message, ok := firstElem(value, "messages")
	if !ok {
		return nil
	}

	from, ok := stringField(message, "from")
	if !ok {
		return nil
	}

	msg := &Message{
		Platform: string(w.Channel()),
		UserID:   from,
		Raw:      payload,
	}
	if text, ok := nested(message, "text"); ok {
		msg.Text, _ = stringField(text, "body")
	}
	if image, ok := nested(message, "image"); ok {
		msg.MediaURL, _ = stringField(image, "link")
	}
	if msg.Text == "" && msg.MediaURL == "" {
		return nil
	}
	return msg
}
