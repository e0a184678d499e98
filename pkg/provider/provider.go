package provider

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/pingline/pingline/pkg/notification"
)

// Message is the normalized inbound message shape shared by all providers.
// Raw keeps the original payload for audit only; nothing downstream should
// depend on its structure.
type Message struct {
	Platform string         `json:"platform"`
	UserID   string         `json:"user_id"`
	Text     string         `json:"text"`
	MediaURL string         `json:"media_url,omitempty"`
	Raw      map[string]any `json:"-"`
}

// WebhookRequest carries everything an adapter may need to verify an inbound
// webhook: the exact request URL, headers, the raw body bytes, and the decoded
// form values for form-encoded providers. The raw body must be the unmodified
// wire bytes or digest comparison will fail.
type WebhookRequest struct {
	URL    string
	Header http.Header
	Body   []byte
	Form   url.Values
}

// Adapter implements send, webhook verification, and inbound parsing for one
// external messaging protocol.
type Adapter interface {
	// Name is the provider identifier ("twilio", "fcm", ...), used for
	// registry keys and log dimensions.
	Name() string

	// Channel is the logical channel this adapter serves. Several adapters
	// may serve the same channel; the gateway picks one at startup.
	Channel() notification.Channel

	// Send performs the outbound call. mediaURL may be empty. Transient
	// provider failures (timeouts, 429, 5xx) are wrapped in
	// ErrProviderUnavailable, permanent rejections in ErrProviderRejected.
	Send(ctx context.Context, to, body, mediaURL string) error

	// VerifyWebhook recomputes the provider's keyed digest over the request
	// and compares it in constant time. It returns nil only when the payload
	// may be trusted. Behavior with a missing shared secret is governed by
	// the adapter's enforcement flag, never silently.
	VerifyWebhook(req WebhookRequest) error

	// ParseIncoming extracts the sender and text from a decoded payload.
	// It returns nil when the required fields are absent.
	ParseIncoming(payload map[string]any) *Message
}

// Option configures the HTTP client behavior shared by wire adapters.
type Option func(*clientOptions)

type clientOptions struct {
	client  *http.Client
	limiter *rate.Limiter
}

// WithHTTPClient replaces the default pooled HTTP client. Nil clients are
// ignored.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) {
		if c != nil {
			o.client = c
		}
	}
}

// WithRateLimit caps outbound calls to the provider at rps requests per
// second with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *clientOptions) {
		o.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) {
		o.client.Timeout = d
	}
}

func newClientOptions(opts ...Option) clientOptions {
	o := clientOptions{client: newHTTPClient()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// wait blocks until the rate limiter admits one request or the context is
// cancelled.
func (o clientOptions) wait(ctx context.Context) error {
	if o.limiter == nil {
		return nil
	}
	return o.limiter.Wait(ctx)
}

// newHTTPClient builds the shared pooled client. The timeout keeps a stuck
// provider from blocking the scheduler; a timed-out call is just another
// ErrProviderUnavailable to the caller.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 15 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// stringField returns payload[key] when it is a non-empty string.
func stringField(payload map[string]any, key string) (string, bool) {
	v, ok := payload[key].(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// nested walks a chain of maps and returns the map at the end of the path.
func nested(payload map[string]any, path ...string) (map[string]any, bool) {
	cur := payload
	for _, key := range path {
		next, ok := cur[key].(map[string]any)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// firstElem returns the first element of a JSON array field as a map.
func firstElem(payload map[string]any, key string) (map[string]any, bool) {
	arr, ok := payload[key].([]any)
	if !ok || len(arr) == 0 {
		return nil, false
	}
	elem, ok := arr[0].(map[string]any)
	return elem, ok
}
