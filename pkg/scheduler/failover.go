package scheduler

import "github.com/pingline/pingline/pkg/notification"

// fallbackTable maps a failed channel to the single channel tried next. A
// channel absent from the table has no fallback, and no channel falls back
// to itself.
var fallbackTable = map[notification.Channel]notification.Channel{
	notification.ChannelPush:    notification.ChannelSMS,
	notification.ChannelEmail:   notification.ChannelSMS,
	notification.ChannelInApp:   notification.ChannelPush,
	notification.ChannelWebhook: notification.ChannelEmail,
}

// Fallback returns the fallback channel for ch, if any.
func Fallback(ch notification.Channel) (notification.Channel, bool) {
	fb, ok := fallbackTable[ch]
	return fb, ok
}
