// Package pingline is a multi-channel notification delivery engine. It
// schedules notifications around user preferences, quiet hours, and
// engagement history, delivers them over SMS, WhatsApp, Telegram, Messenger,
// push, email, in-app, and signed webhooks, fails over once when a channel
// is down, and tracks every delivery through an engagement state machine
// that feeds timing and channel recommendations back into scheduling.
//
// The Engine facade is the upward contract: the embedding application
// decides what to say, the engine decides when, where, and how it gets
// there. Inbound provider webhooks are verified and normalized by the
// gateway's HTTP router.
package pingline
