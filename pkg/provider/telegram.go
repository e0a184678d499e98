package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/pingline/pingline/pkg/notification"
)

// TelegramConfig holds Bot API credentials. Telegram does not sign webhook
// bodies; instead it echoes back the secret token registered with setWebhook
// in a dedicated header.
type TelegramConfig struct {
	BotToken      string `env:"TELEGRAM_BOT_TOKEN"`
	WebhookSecret string `env:"TELEGRAM_WEBHOOK_SECRET"`
	APIBaseURL    string `env:"TELEGRAM_API_BASE_URL" envDefault:"https://api.telegram.org"`
	EnforceSecret bool   `env:"TELEGRAM_ENFORCE_SECRET" envDefault:"true"`
}

// Telegram sends messages through the Bot API.
type Telegram struct {
	cfg  TelegramConfig
	opts clientOptions
}

// NewTelegram creates a Telegram Bot API adapter.
func NewTelegram(cfg TelegramConfig, opts ...Option) *Telegram {
	return &Telegram{cfg: cfg, opts: newClientOptions(opts...)}
}

func (t *Telegram) Name() string                  { return "telegram" }
func (t *Telegram) Channel() notification.Channel { return notification.ChannelTelegram }

func (t *Telegram) Send(ctx context.Context, to, body, mediaURL string) error {
	if t.cfg.BotToken == "" {
		return fmt.Errorf("%w: telegram bot token missing", ErrNotConfigured)
	}
	if err := t.opts.wait(ctx); err != nil {
		return err
	}

	method := "sendMessage"
	payload := map[string]any{"chat_id": to, "text": body}
	if mediaURL != "" {
		method = "sendPhoto"
		payload = map[string]any{"chat_id": to, "photo": mediaURL, "caption": body}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: telegram: %v", ErrProviderRejected, err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", t.cfg.APIBaseURL, t.cfg.BotToken, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%w: telegram: %v", ErrProviderRejected, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.opts.client.Do(req)
	if err != nil {
		return transportError("telegram", err)
	}
	return classifyResponse("telegram", resp)
}

// VerifyWebhook compares the X-Telegram-Bot-Api-Secret-Token header against
// the configured secret in constant time.
func (t *Telegram) VerifyWebhook(req WebhookRequest) error {
	if t.cfg.WebhookSecret == "" {
		if t.cfg.EnforceSecret {
			return fmt.Errorf("%w: telegram webhook secret missing", ErrNotConfigured)
		}
		return nil
	}

	token := req.Header.Get("X-Telegram-Bot-Api-Secret-Token")
	if token == "" {
		if t.cfg.EnforceSecret {
			return ErrSignatureMissing
		}
		return nil
	}
	if !secureEqual(t.cfg.WebhookSecret, token) {
		return ErrSignatureInvalid
	}
	return nil
}

// ParseIncoming reads a Bot API update: message.from.id and message.text.
// Chat id is preferred as the reply address when present.
func (t *Telegram) ParseIncoming(payload map[string]any) *Message {
	message, ok := nested(payload, "message")
	if !ok {
		return nil
	}
	text, ok := stringField(message, "text")
	if !ok {
		return nil
	}

	sender := numericID(message, "from")
	if sender == "" {
		sender = numericID(message, "chat")
	}
	if sender == "" {
		return nil
	}

	return &Message{
		Platform: string(t.Channel()),
		UserID:   sender,
		Text:     text,
		Raw:      payload,
	}
}

// numericID extracts the integer id field of a nested object as a string.
// JSON numbers decode as float64, so the value is truncated, never rounded.
func numericID(payload map[string]any, key string) string {
	obj, ok := nested(payload, key)
	if !ok {
		return ""
	}
	switch id := obj["id"].(type) {
	case float64:
		return strconv.FormatInt(int64(id), 10)
	case string:
		return id
	default:
		return ""
	}
}
