package prefs

import (
	"time"

	"github.com/pingline/pingline/pkg/notification"
)

// QuietHours is a daily window, in the user's local hours, during which no
// notification should be delivered. The window may wrap midnight (start 22,
// end 7). Both ends are inclusive. Start == End disables the window.
type QuietHours struct {
	Start int `json:"start" validate:"gte=0,lte=23"`
	End   int `json:"end" validate:"gte=0,lte=23"`
}

// Wraps reports whether the window crosses midnight.
func (q QuietHours) Wraps() bool { return q.Start > q.End }

// Contains reports whether the hour falls inside the window.
func (q QuietHours) Contains(hour int) bool {
	if q.Start == q.End {
		return false
	}
	if q.Wraps() {
		return hour >= q.Start || hour <= q.End
	}
	return hour >= q.Start && hour <= q.End
}

// Preferences is a user's notification configuration. Instances are
// value-copied through the Store so callers can never mutate shared state.
type Preferences struct {
	UserID       string                                        `json:"user_id" validate:"required"`
	EnabledTypes map[notification.Type]bool                    `json:"enabled_types"`
	QuietHours   *QuietHours                                   `json:"quiet_hours,omitempty"`
	ChannelOrder map[notification.Type][]notification.Channel  `json:"channel_order"`
	DailyCaps    map[notification.Type]int                     `json:"daily_caps" validate:"dive,gte=0"`
	WeeklyCaps   map[notification.Type]int                     `json:"weekly_caps" validate:"dive,gte=0"`
	Addresses    map[notification.Channel]string               `json:"addresses"`
	Timezone     string                                        `json:"timezone" validate:"omitempty,timezone"`
	UpdatedAt    time.Time                                     `json:"updated_at"`
}

// TypeEnabled reports whether the user accepts notifications of this type.
// Types missing from the map are enabled; users opt out, not in.
func (p Preferences) TypeEnabled(t notification.Type) bool {
	enabled, ok := p.EnabledTypes[t]
	return !ok || enabled
}

// Address returns the recipient identifier for a channel.
func (p Preferences) Address(ch notification.Channel) (string, bool) {
	addr, ok := p.Addresses[ch]
	return addr, ok && addr != ""
}

// Location resolves the user's timezone, falling back to UTC.
func (p Preferences) Location() *time.Location {
	if p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Default builds the preferences a user gets on first interaction:
// everything enabled, overnight quiet hours, and conservative caps.
func Default(userID string) Preferences {
	return Preferences{
		UserID: userID,
		EnabledTypes: map[notification.Type]bool{
			notification.TypeReminder: true,
			notification.TypeAlert:    true,
			notification.TypeDigest:   true,
			notification.TypeSystem:   true,
		},
		QuietHours: &QuietHours{Start: 22, End: 7},
		ChannelOrder: map[notification.Type][]notification.Channel{
			notification.TypeReminder: {notification.ChannelPush, notification.ChannelInApp},
			notification.TypeAlert:    {notification.ChannelSMS, notification.ChannelPush},
			notification.TypeDigest:   {notification.ChannelEmail, notification.ChannelInApp},
			notification.TypeSystem:   {notification.ChannelInApp, notification.ChannelPush},
		},
		DailyCaps: map[notification.Type]int{
			notification.TypeReminder: 5,
			notification.TypeAlert:    10,
			notification.TypeDigest:   1,
			notification.TypeSystem:   5,
		},
		WeeklyCaps: map[notification.Type]int{
			notification.TypeReminder: 20,
			notification.TypeAlert:    50,
			notification.TypeDigest:   7,
			notification.TypeSystem:   20,
		},
		Addresses: map[notification.Channel]string{},
		Timezone:  "UTC",
	}
}

// clone deep-copies the preference maps so stored state never aliases what a
// caller holds.
func clone(p Preferences) Preferences {
	out := p
	out.EnabledTypes = make(map[notification.Type]bool, len(p.EnabledTypes))
	for k, v := range p.EnabledTypes {
		out.EnabledTypes[k] = v
	}
	out.ChannelOrder = make(map[notification.Type][]notification.Channel, len(p.ChannelOrder))
	for k, v := range p.ChannelOrder {
		out.ChannelOrder[k] = append([]notification.Channel(nil), v...)
	}
	out.DailyCaps = make(map[notification.Type]int, len(p.DailyCaps))
	for k, v := range p.DailyCaps {
		out.DailyCaps[k] = v
	}
	out.WeeklyCaps = make(map[notification.Type]int, len(p.WeeklyCaps))
	for k, v := range p.WeeklyCaps {
		out.WeeklyCaps[k] = v
	}
	out.Addresses = make(map[notification.Channel]string, len(p.Addresses))
	for k, v := range p.Addresses {
		out.Addresses[k] = v
	}
	if p.QuietHours != nil {
		q := *p.QuietHours
		out.QuietHours = &q
	}
	return out
}
