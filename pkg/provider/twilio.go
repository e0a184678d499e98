package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pingline/pingline/pkg/notification"
)

// TwilioConfig holds Twilio SMS credentials. AuthToken doubles as the webhook
// signing secret. EnforceSignature controls what happens when a webhook
// arrives without a signature or before the token is configured: strict mode
// rejects, permissive mode lets it through.
type TwilioConfig struct {
	AccountSID       string `env:"TWILIO_ACCOUNT_SID"`
	AuthToken        string `env:"TWILIO_AUTH_TOKEN"`
	FromNumber       string `env:"TWILIO_FROM_NUMBER"`
	APIBaseURL       string `env:"TWILIO_API_BASE_URL" envDefault:"https://api.twilio.com"`
	EnforceSignature bool   `env:"TWILIO_ENFORCE_SIGNATURE" envDefault:"true"`
}

// Twilio sends SMS through the Twilio Messages API and verifies Twilio's
// HMAC-SHA1 webhook signature scheme.
type Twilio struct {
	cfg  TwilioConfig
	opts clientOptions
}

// NewTwilio creates a Twilio SMS adapter.
func NewTwilio(cfg TwilioConfig, opts ...Option) *Twilio {
	return &Twilio{cfg: cfg, opts: newClientOptions(opts...)}
}

func (t *Twilio) Name() string                  { return "twilio" }
func (t *Twilio) Channel() notification.Channel { return notification.ChannelSMS }

func (t *Twilio) Send(ctx context.Context, to, body, mediaURL string) error {
	if t.cfg.AccountSID == "" || t.cfg.AuthToken == "" {
		return fmt.Errorf("%w: twilio credentials missing", ErrNotConfigured)
	}
	if err := t.opts.wait(ctx); err != nil {
		return err
	}

	form := url.Values{
		"To":   {to},
		"From": {t.cfg.FromNumber},
		"Body": {body},
	}
	if mediaURL != "" {
		form.Set("MediaUrl", mediaURL)
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", t.cfg.APIBaseURL, t.cfg.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: twilio: %v", ErrProviderRejected, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(t.cfg.AccountSID, t.cfg.AuthToken)

	resp, err := t.opts.client.Do(req)
	if err != nil {
		return transportError("twilio", err)
	}
	return classifyResponse("twilio", resp)
}

// VerifyWebhook checks the X-Twilio-Signature header: base64 HMAC-SHA1 of the
// request URL concatenated with every POST parameter in key order. Twilio
// sends no signature on some sandbox flows, so a missing header is tolerated
// unless enforcement is on.
func (t *Twilio) VerifyWebhook(req WebhookRequest) error {
	if t.cfg.AuthToken == "" {
		if t.cfg.EnforceSignature {
			return fmt.Errorf("%w: twilio auth token missing", ErrNotConfigured)
		}
		return nil
	}

	sig := req.Header.Get("X-Twilio-Signature")
	if sig == "" {
		if t.cfg.EnforceSignature {
			return ErrSignatureMissing
		}
		return nil
	}

	expected := hmacSHA1Base64(t.cfg.AuthToken, twilioSignatureBase(req.URL, req.Form))
	if !secureEqual(expected, sig) {
		return ErrSignatureInvalid
	}
	return nil
}

// TwilioSignature computes the X-Twilio-Signature value for a request.
// Exported so transports and tests can fabricate signed requests.
func TwilioSignature(authToken, requestURL string, form url.Values) string {
	return hmacSHA1Base64(authToken, twilioSignatureBase(requestURL, form))
}

// ParseIncoming reads Twilio's form-encoded inbound shape: From, Body, and
// the first media URL when present.
func (t *Twilio) ParseIncoming(payload map[string]any) *Message {
	from, ok := stringField(payload, "From")
	if !ok {
		return nil
	}
	body, ok := stringField(payload, "Body")
	if !ok {
		return nil
	}

	msg := &Message{
		Platform: string(t.Channel()),
		UserID:   from,
		Text:     body,
		Raw:      payload,
	}
	if media, ok := stringField(payload, "MediaUrl0"); ok {
		msg.MediaURL = media
	}
	return msg
}
