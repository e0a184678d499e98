package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/pingline/pingline/pkg/notification"
)

// WebhookOutConfig configures the outbound webhook channel. The recipient
// address for this channel is the subscriber's endpoint URL.
type WebhookOutConfig struct {
	SigningSecret string        `env:"NOTIFY_WEBHOOK_SIGNING_SECRET"`
	MaxRetries    int           `env:"NOTIFY_WEBHOOK_MAX_RETRIES" envDefault:"2"`
	RetryBackoff  time.Duration `env:"NOTIFY_WEBHOOK_RETRY_BACKOFF" envDefault:"500ms"`
}

// WebhookOut pushes notifications to subscriber-owned HTTP endpoints, signing
// each payload so receivers can authenticate the engine the same way the
// engine authenticates its own inbound providers.
type WebhookOut struct {
	cfg  WebhookOutConfig
	opts clientOptions
}

// NewWebhookOut creates the outbound webhook adapter.
func NewWebhookOut(cfg WebhookOutConfig, opts ...Option) *WebhookOut {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}
	return &WebhookOut{cfg: cfg, opts: newClientOptions(opts...)}
}

func (w *WebhookOut) Name() string                  { return "webhook" }
func (w *WebhookOut) Channel() notification.Channel { return notification.ChannelWebhook }

// Send POSTs the notification as JSON to the endpoint URL with signature
// headers. Transient failures are retried with doubling backoff before the
// error surfaces to the failover path.
func (w *WebhookOut) Send(ctx context.Context, to, body, mediaURL string) error {
	payload, err := json.Marshal(map[string]any{
		"id":        uuid.New().String(),
		"text":      body,
		"media_url": mediaURL,
		"sent_at":   time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("%w: webhook: %v", ErrProviderRejected, err)
	}

	backoff := w.cfg.RetryBackoff
	var lastErr error
	for attempt := 0; attempt <= w.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return transportError("webhook", ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		lastErr = w.post(ctx, to, payload)
		if lastErr == nil || !IsTransient(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func (w *WebhookOut) post(ctx context.Context, endpoint string, payload []byte) error {
	if err := w.opts.wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: webhook: %v", ErrProviderRejected, err)
	}
	req.Header.Set("Content-Type", "application/json")

	if w.cfg.SigningSecret != "" {
		ts := time.Now().Unix()
		// Timestamp binding keeps replayed payloads verifiable as stale.
		signed := fmt.Sprintf("%d.%s", ts, payload)
		req.Header.Set("X-Webhook-Signature", hmacSHA256Hex(w.cfg.SigningSecret, []byte(signed)))
		req.Header.Set("X-Webhook-Timestamp", strconv.FormatInt(ts, 10))
		req.Header.Set("X-Webhook-ID", uuid.New().String())
	}

	resp, err := w.opts.client.Do(req)
	if err != nil {
		return transportError("webhook", err)
	}
	return classifyResponse("webhook", resp)
}

func (w *WebhookOut) VerifyWebhook(WebhookRequest) error { return ErrInboundUnsupported }

func (w *WebhookOut) ParseIncoming(map[string]any) *Message { return nil }
