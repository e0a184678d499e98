package provider

import (
	"context"
	"sync"
	"time"

	"github.com/pingline/pingline/pkg/notification"
)

// InAppMessage is what an in-app subscriber receives.
type InAppMessage struct {
	UserID   string    `json:"user_id"`
	Text     string    `json:"text"`
	MediaURL string    `json:"media_url,omitempty"`
	SentAt   time.Time `json:"sent_at"`
}

// InAppHub fans in-app messages out to per-user subscribers. Transports
// (SSE, WebSocket) subscribe with the user id and stream whatever arrives.
// A slow subscriber loses messages rather than blocking delivery.
type InAppHub struct {
	mu   sync.RWMutex
	subs map[string][]chan InAppMessage
}

// NewInAppHub creates an empty hub.
func NewInAppHub() *InAppHub {
	return &InAppHub{subs: make(map[string][]chan InAppMessage)}
}

// Subscribe registers a buffered subscription for userID. The returned cancel
// function must be called to release the channel.
func (h *InAppHub) Subscribe(userID string, buffer int) (<-chan InAppMessage, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan InAppMessage, buffer)

	h.mu.Lock()
	h.subs[userID] = append(h.subs[userID], ch)
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		subs := h.subs[userID]
		for i, c := range subs {
			if c == ch {
				h.subs[userID] = append(subs[:i], subs[i+1:]...)
				close(c)
				break
			}
		}
		if len(h.subs[userID]) == 0 {
			delete(h.subs, userID)
		}
	}
	return ch, cancel
}

// Publish delivers msg to every subscriber of the user, dropping on full
// buffers.
func (h *InAppHub) Publish(msg InAppMessage) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, ch := range h.subs[msg.UserID] {
		select {
		case ch <- msg:
			delivered++
		default:
			// Subscriber buffer full; drop instead of blocking the sender.
		}
	}
	return delivered
}

// Subscribers returns the subscription count for a user.
func (h *InAppHub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

// InApp delivers notifications to connected clients through an InAppHub.
// Delivery succeeds even with no subscriber online: the delivery record
// remains available for the client to pull on next connect.
type InApp struct {
	hub *InAppHub
}

// NewInApp creates the in-app adapter around a hub.
func NewInApp(hub *InAppHub) *InApp {
	return &InApp{hub: hub}
}

// Hub exposes the underlying hub for transport layers.
func (a *InApp) Hub() *InAppHub { return a.hub }

func (a *InApp) Name() string                  { return "inapp" }
func (a *InApp) Channel() notification.Channel { return notification.ChannelInApp }

func (a *InApp) Send(ctx context.Context, to, body, mediaURL string) error {
	a.hub.Publish(InAppMessage{
		UserID:   to,
		Text:     body,
		MediaURL: mediaURL,
		SentAt:   time.Now(),
	})
	return nil
}

func (a *InApp) VerifyWebhook(WebhookRequest) error { return ErrInboundUnsupported }

func (a *InApp) ParseIncoming(map[string]any) *Message { return nil }
