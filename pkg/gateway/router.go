package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pingline/pingline/pkg/logger"
	"github.com/pingline/pingline/pkg/notification"
	"github.com/pingline/pingline/pkg/provider"
)

// maxWebhookBody bounds inbound payload size; providers send small events.
const maxWebhookBody = 1 << 20

// subscriptionVerifier is implemented by adapters with a GET registration
// handshake (Meta's hub.challenge flow).
type subscriptionVerifier interface {
	VerifySubscription(mode, token, challenge string) (string, bool)
}

// Router mounts the inbound webhook endpoints:
//
//	GET  /webhooks/{channel}  - subscription handshake (Meta platforms)
//	POST /webhooks/{channel}  - channel-pinned webhook
//	POST /webhooks            - platform auto-detection
func (g *Gateway) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/webhooks/{channel}", g.handleSubscribe)
	r.Post("/webhooks/{channel}", g.handleWebhook)
	r.Post("/webhooks", g.handleWebhook)
	return r
}

func (g *Gateway) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	channel := notification.Channel(chi.URLParam(r, "channel"))
	adapter, ok := g.byChannel[channel]
	if !ok {
		http.NotFound(w, r)
		return
	}

	verifier, ok := adapter.(subscriptionVerifier)
	if !ok {
		http.NotFound(w, r)
		return
	}

	q := r.URL.Query()
	challenge, ok := verifier.VerifySubscription(
		q.Get("hub.mode"), q.Get("hub.verify_token"), q.Get("hub.challenge"))
	if !ok {
		http.Error(w, "verification failed", http.StatusForbidden)
		return
	}
	_, _ = w.Write([]byte(challenge))
}

func (g *Gateway) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return
	}

	req, payload, err := g.decodeRequest(r, body)
	if err != nil {
		http.Error(w, "malformed body", http.StatusBadRequest)
		return
	}

	channel := notification.Channel(chi.URLParam(r, "channel"))
	if channel == "" {
		detected, ok := g.DetectPlatform(payload)
		if !ok {
			g.logger.LogAttrs(ctx, slog.LevelWarn, "Inbound event from unknown platform")
			http.Error(w, "unknown platform", http.StatusBadRequest)
			return
		}
		channel = detected
	}

	msg, err := g.VerifyAndParse(ctx, channel, req, payload)
	switch {
	case errors.Is(err, ErrSignatureRejected):
		http.Error(w, "signature rejected", http.StatusUnauthorized)
		return
	case errors.Is(err, ErrChannelUnavailable):
		http.NotFound(w, r)
		return
	case errors.Is(err, ErrMalformedPayload):
		// Status callbacks and receipts verify but carry no message. Ack so
		// the provider stops retrying.
		w.WriteHeader(http.StatusOK)
		return
	case err != nil:
		http.Error(w, "webhook error", http.StatusInternalServerError)
		return
	}

	if g.inbound != nil {
		g.inbound(ctx, *msg)
	}

	g.logger.LogAttrs(ctx, slog.LevelDebug, "Inbound message accepted",
		logger.Channel(msg.Platform),
		logger.UserID(msg.UserID),
	)
	w.WriteHeader(http.StatusOK)
}

// decodeRequest builds the verification request and the decoded payload from
// either a JSON or a form-encoded body. The raw bytes are preserved for
// digest comparison regardless of content type.
func (g *Gateway) decodeRequest(r *http.Request, body []byte) (provider.WebhookRequest, map[string]any, error) {
	req := provider.WebhookRequest{
		URL:    g.requestURL(r),
		Header: r.Header,
		Body:   body,
	}

	payload := make(map[string]any)
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") {
		form, err := parseForm(body)
		if err != nil {
			return req, nil, err
		}
		req.Form = form
		for key := range form {
			payload[key] = form.Get(key)
		}
		return req, payload, nil
	}

	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			return req, nil, err
		}
	}
	return req, payload, nil
}

func parseForm(body []byte) (url.Values, error) {
	return url.ParseQuery(string(body))
}

// requestURL reconstructs the exact URL the provider signed.
func (g *Gateway) requestURL(r *http.Request) string {
	if g.baseURL != "" {
		return g.baseURL + r.URL.RequestURI()
	}
	scheme := "https"
	if r.TLS == nil {
		scheme = "http"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
