package prefs

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/pingline/pingline/pkg/notification"
)

// Patch is a partial preference update. Nil or empty fields leave the
// current value untouched; map fields merge key by key.
type Patch struct {
	EnabledTypes    map[notification.Type]bool                   `json:"enabled_types,omitempty"`
	QuietHours      *QuietHours                                  `json:"quiet_hours,omitempty"`
	ClearQuietHours bool                                         `json:"clear_quiet_hours,omitempty"`
	ChannelOrder    map[notification.Type][]notification.Channel `json:"channel_order,omitempty"`
	DailyCaps       map[notification.Type]int                    `json:"daily_caps,omitempty"`
	WeeklyCaps      map[notification.Type]int                    `json:"weekly_caps,omitempty"`
	Addresses       map[notification.Channel]string              `json:"addresses,omitempty"`
	Timezone        *string                                      `json:"timezone,omitempty"`
}

// Store persists per-user preferences. Get creates defaults on first touch;
// updates supersede the stored value, nothing is ever deleted.
type Store interface {
	Get(ctx context.Context, userID string) (Preferences, error)
	Update(ctx context.Context, userID string, patch Patch) (Preferences, error)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// apply merges a patch into p and validates the result.
func apply(p Preferences, patch Patch) (Preferences, error) {
	for t, enabled := range patch.EnabledTypes {
		p.EnabledTypes[t] = enabled
	}
	switch {
	case patch.ClearQuietHours:
		p.QuietHours = nil
	case patch.QuietHours != nil:
		q := *patch.QuietHours
		p.QuietHours = &q
	}
	for t, order := range patch.ChannelOrder {
		p.ChannelOrder[t] = append([]notification.Channel(nil), order...)
	}
	for t, limit := range patch.DailyCaps {
		p.DailyCaps[t] = limit
	}
	for t, limit := range patch.WeeklyCaps {
		p.WeeklyCaps[t] = limit
	}
	for ch, addr := range patch.Addresses {
		p.Addresses[ch] = addr
	}
	if patch.Timezone != nil {
		p.Timezone = *patch.Timezone
	}

	if err := validate.Struct(p); err != nil {
		return Preferences{}, &ValidationError{cause: err}
	}
	return p, nil
}
