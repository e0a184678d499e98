package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pingline/pingline/pkg/logger"
	"github.com/pingline/pingline/pkg/notification"
	"github.com/pingline/pingline/pkg/provider"
)

// Config selects which provider serves each logical channel when several are
// configured. RoutingFile optionally points at a YAML file overriding the
// per-channel preference.
type Config struct {
	SMSProvider string `env:"GATEWAY_SMS_PROVIDER" envDefault:"twilio"`
	RoutingFile string `env:"GATEWAY_ROUTING_FILE"`
}

// InboundHandler receives verified, normalized inbound messages.
type InboundHandler func(ctx context.Context, msg provider.Message)

// Gateway owns the adapter registry. It routes outbound sends by logical
// channel, detects which platform an inbound webhook belongs to, verifies
// signatures, and normalizes payloads.
type Gateway struct {
	byChannel map[notification.Channel]provider.Adapter
	adapters  []provider.Adapter
	inbound   InboundHandler
	baseURL   string
	logger    *slog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the gateway logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithInboundHandler registers the callback for verified inbound messages.
func WithInboundHandler(h InboundHandler) Option {
	return func(g *Gateway) { g.inbound = h }
}

// WithPublicBaseURL pins the URL scheme+host used for signature verification
// when the engine sits behind a proxy that rewrites Host headers.
func WithPublicBaseURL(u string) Option {
	return func(g *Gateway) { g.baseURL = strings.TrimRight(u, "/") }
}

// New builds the registry from the given adapters. The first adapter
// registered for a channel wins unless the routing preference names a later
// one; this is how a primary provider shadows a legacy one that is still
// configured. WhatsApp and SMS are independent channels and may be served by
// different providers at the same time.
func New(cfg Config, adapters []provider.Adapter, opts ...Option) (*Gateway, error) {
	prefer := map[notification.Channel]string{
		notification.ChannelSMS: cfg.SMSProvider,
	}
	if cfg.RoutingFile != "" {
		routing, err := LoadRouting(cfg.RoutingFile)
		if err != nil {
			return nil, err
		}
		for ch, name := range routing.Preferred {
			prefer[notification.Channel(ch)] = name
		}
	}

	g := &Gateway{
		byChannel: make(map[notification.Channel]provider.Adapter),
		adapters:  adapters,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}

	for _, a := range adapters {
		ch := a.Channel()
		current, exists := g.byChannel[ch]
		switch {
		case !exists:
			g.byChannel[ch] = a
		case prefer[ch] == a.Name() && prefer[ch] != current.Name():
			g.byChannel[ch] = a
		}
	}

	for ch, a := range g.byChannel {
		g.logger.LogAttrs(context.Background(), slog.LevelInfo, "Channel provider selected",
			logger.Channel(string(ch)),
			logger.Provider(a.Name()),
		)
	}
	return g, nil
}

// Available reports whether an adapter is registered for the channel.
func (g *Gateway) Available(channel notification.Channel) bool {
	_, ok := g.byChannel[channel]
	return ok
}

// Send routes an outbound message through the channel's adapter. A channel
// with no registered adapter is a normal unavailable condition, not a
// configuration fault.
func (g *Gateway) Send(ctx context.Context, channel notification.Channel, to, body, mediaURL string) error {
	adapter, ok := g.byChannel[channel]
	if !ok {
		return fmt.Errorf("%w: %s", ErrChannelUnavailable, channel)
	}

	err := adapter.Send(ctx, to, body, mediaURL)
	if err != nil {
		g.logger.LogAttrs(ctx, slog.LevelWarn, "Provider send failed",
			logger.Channel(string(channel)),
			logger.Provider(adapter.Name()),
			logger.Error(err),
		)
	}
	return err
}

// DetectPlatform inspects an inbound event and returns the logical channel it
// belongs to. Heuristics run in priority order: an explicit channel field,
// then payload-structure fingerprints, then the whatsapp: address prefix
// convention, then plain SMS shapes.
func (g *Gateway) DetectPlatform(payload map[string]any) (notification.Channel, bool) {
	if ch, ok := payload["channel"].(string); ok && ch != "" {
		return notification.Channel(ch), true
	}

	if object, ok := payload["object"].(string); ok {
		switch object {
		case "whatsapp_business_account":
			return notification.ChannelWhatsApp, true
		case "page":
			return notification.ChannelMessenger, true
		}
	}

	if _, ok := payload["update_id"]; ok {
		return notification.ChannelTelegram, true
	}

	if from, ok := payload["From"].(string); ok {
		if strings.HasPrefix(from, "whatsapp:") {
			return notification.ChannelWhatsApp, true
		}
		return notification.ChannelSMS, true
	}

	if _, ok := payload["originationNumber"]; ok {
		return notification.ChannelSMS, true
	}

	return "", false
}

// VerifyAndParse verifies the webhook signature through the channel's adapter
// and only then parses the payload. A failed verification returns before any
// payload field is touched.
func (g *Gateway) VerifyAndParse(ctx context.Context, channel notification.Channel, req provider.WebhookRequest, payload map[string]any) (*provider.Message, error) {
	adapter, ok := g.byChannel[channel]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChannelUnavailable, channel)
	}

	if err := adapter.VerifyWebhook(req); err != nil {
		g.logger.LogAttrs(ctx, slog.LevelWarn, "Webhook signature rejected",
			logger.Channel(string(channel)),
			logger.Provider(adapter.Name()),
			logger.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrSignatureRejected, err)
	}

	msg := adapter.ParseIncoming(payload)
	if msg == nil {
		return nil, ErrMalformedPayload
	}
	return msg, nil
}
