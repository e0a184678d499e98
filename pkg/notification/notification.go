package notification

import (
	"time"
)

// Type classifies a notification so preferences and frequency caps can be
// applied per category.
type Type string

const (
	TypeReminder Type = "reminder"
	TypeAlert    Type = "alert"
	TypeDigest   Type = "digest"
	TypeSystem   Type = "system"
)

// Priority represents the notification priority level.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityUrgent
)

// Channel identifies a logical delivery channel. Which provider serves a
// channel is decided by the gateway registry, not by the channel name.
type Channel string

const (
	ChannelSMS       Channel = "sms"
	ChannelWhatsApp  Channel = "whatsapp"
	ChannelTelegram  Channel = "telegram"
	ChannelMessenger Channel = "messenger"
	ChannelPush      Channel = "push"
	ChannelEmail     Channel = "email"
	ChannelInApp     Channel = "in_app"
	ChannelWebhook   Channel = "webhook"
)

// Schedule is a pending notification: content plus the delivery decision
// (channel and optimized time). It is consumed exactly once by dispatch and
// immutable afterwards.
type Schedule struct {
	ID            string            `json:"id"`
	UserID        string            `json:"user_id"`
	Type          Type              `json:"type"`
	Title         string            `json:"title"`
	Content       string            `json:"content"`
	Priority      Priority          `json:"priority"`
	Channel       Channel           `json:"channel"`
	RequestedAt   time.Time         `json:"requested_at"`
	DeliverAt     time.Time         `json:"deliver_at"`
	CreatedAt     time.Time         `json:"created_at"`
	ExpiresAt     *time.Time        `json:"expires_at,omitempty"`
	Cancelled     bool              `json:"cancelled"`
	Dispatched    bool              `json:"dispatched"`
	TemplateMeta  map[string]string `json:"template_meta,omitempty"`
}

// IsExpired reports whether the schedule has passed its expiration.
func (s *Schedule) IsExpired(now time.Time) bool {
	if s.ExpiresAt == nil {
		return false
	}
	return now.After(*s.ExpiresAt)
}

// Delivery tracks one attempt to put a schedule in front of a user. A schedule
// produces at most one primary delivery plus at most one fallback delivery.
type Delivery struct {
	ID            string     `json:"id"`
	ScheduleID    string     `json:"schedule_id"`
	UserID        string     `json:"user_id"`
	Type          Type       `json:"type"`
	Channel       Channel    `json:"channel"`
	Status        Status     `json:"status"`
	SentAt        *time.Time `json:"sent_at,omitempty"`
	DeliveredAt   *time.Time `json:"delivered_at,omitempty"`
	ReadAt        *time.Time `json:"read_at,omitempty"`
	ClickedAt     *time.Time `json:"clicked_at,omitempty"`
	FailedAt      *time.Time `json:"failed_at,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`
	// FallbackFrom is set on the fallback delivery and names the channel
	// whose failure triggered it.
	FallbackFrom Channel `json:"fallback_from,omitempty"`
	Score        float64 `json:"score"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsFallback reports whether this delivery was produced by failover.
func (d *Delivery) IsFallback() bool {
	return d.FallbackFrom != ""
}
