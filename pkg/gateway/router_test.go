package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pingline/pingline/pkg/notification"
	"github.com/pingline/pingline/pkg/provider"
)

func TestRouterWebhook(t *testing.T) {
	t.Run("form-encoded sms webhook reaches the inbound handler", func(t *testing.T) {
		adapter := &stubAdapter{name: "twilio", channel: notification.ChannelSMS}

		var received []provider.Message
		g, err := New(Config{}, []provider.Adapter{adapter},
			WithInboundHandler(func(ctx context.Context, msg provider.Message) {
				received = append(received, msg)
			}))
		require.NoError(t, err)

		srv := httptest.NewServer(g.Router())
		defer srv.Close()

		form := url.Values{"From": {"+15551234567"}, "Body": {"Hello"}}
		resp, err := http.Post(srv.URL+"/webhooks/sms",
			"application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		require.Len(t, received, 1)
		assert.Equal(t, "+15551234567", received[0].UserID)
		assert.Equal(t, "Hello", received[0].Text)
	})

	t.Run("invalid signature returns 401 and skips the handler", func(t *testing.T) {
		adapter := &stubAdapter{
			name: "twilio", channel: notification.ChannelSMS,
			verifyErr: provider.ErrSignatureInvalid,
		}

		handled := false
		g, err := New(Config{}, []provider.Adapter{adapter},
			WithInboundHandler(func(ctx context.Context, msg provider.Message) { handled = true }))
		require.NoError(t, err)

		srv := httptest.NewServer(g.Router())
		defer srv.Close()

		form := url.Values{"From": {"+15551234567"}, "Body": {"Hello"}}
		resp, err := http.Post(srv.URL+"/webhooks/sms",
			"application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.False(t, handled)
	})

	t.Run("json webhook auto-detects the platform", func(t *testing.T) {
		adapter := &stubAdapter{name: "sns", channel: notification.ChannelSMS}

		var received []provider.Message
		g, err := New(Config{SMSProvider: "sns"}, []provider.Adapter{adapter},
			WithInboundHandler(func(ctx context.Context, msg provider.Message) {
				received = append(received, msg)
			}))
		require.NoError(t, err)

		srv := httptest.NewServer(g.Router())
		defer srv.Close()

		resp, err := http.Post(srv.URL+"/webhooks", "application/json",
			strings.NewReader(`{"From":"+15551234567","Body":"via json"}`))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		require.Len(t, received, 1)
		assert.Equal(t, "via json", received[0].Text)
	})

	t.Run("unknown platform returns 400", func(t *testing.T) {
		g, err := New(Config{}, nil)
		require.NoError(t, err)

		srv := httptest.NewServer(g.Router())
		defer srv.Close()

		resp, err := http.Post(srv.URL+"/webhooks", "application/json",
			strings.NewReader(`{"unfamiliar":"shape"}`))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("status callback is acked without a message", func(t *testing.T) {
		adapter := &stubAdapter{name: "twilio", channel: notification.ChannelSMS}
		g, err := New(Config{}, []provider.Adapter{adapter})
		require.NoError(t, err)

		srv := httptest.NewServer(g.Router())
		defer srv.Close()

		form := url.Values{"MessageStatus": {"delivered"}}
		resp, err := http.Post(srv.URL+"/webhooks/sms",
			"application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestRouterSubscriptionHandshake(t *testing.T) {
	wa := provider.NewWhatsApp(provider.WhatsAppConfig{VerifyToken: "vt", EnforceSignature: false})
	g, err := New(Config{}, []provider.Adapter{wa})
	require.NoError(t, err)

	srv := httptest.NewServer(g.Router())
	defer srv.Close()

	t.Run("valid token echoes challenge", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/webhooks/whatsapp?hub.mode=subscribe&hub.verify_token=vt&hub.challenge=123456")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		buf := make([]byte, 16)
		n, _ := resp.Body.Read(buf)
		assert.Equal(t, "123456", string(buf[:n]))
	})

	t.Run("wrong token is forbidden", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/webhooks/whatsapp?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=123456")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("channel without handshake", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/webhooks/sms?hub.mode=subscribe")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestRouterTwilioSignatureRoundTrip(t *testing.T) {
	// End to end: real Twilio adapter, real signature over the public URL.
	const token = "twilio-auth-token"

	adapter := provider.NewTwilio(provider.TwilioConfig{AuthToken: token, EnforceSignature: true})

	var received []provider.Message
	g, err := New(Config{}, []provider.Adapter{adapter},
		WithPublicBaseURL("https://hooks.pingline.dev"),
		WithInboundHandler(func(ctx context.Context, msg provider.Message) {
			received = append(received, msg)
		}))
	require.NoError(t, err)

	srv := httptest.NewServer(g.Router())
	defer srv.Close()

	form := url.Values{"From": {"+15551234567"}, "Body": {"Hello"}}
	sig := provider.TwilioSignature(token, "https://hooks.pingline.dev/webhooks/sms", form)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/webhooks/sms", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Twilio-Signature", sig)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, received, 1)
	assert.Equal(t, "sms", received[0].Platform)
}
