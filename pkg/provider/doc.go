// Package provider implements one adapter per external messaging protocol:
// Twilio and AWS SNS for SMS, WhatsApp Cloud, Facebook Messenger, Telegram,
// Postmark email, Firebase Cloud Messaging push, an in-process hub for in-app
// delivery, and signed outbound webhooks.
//
// Every adapter satisfies the same contract: Send for the outbound call,
// VerifyWebhook for constant-time signature verification of inbound payloads,
// and ParseIncoming for normalizing the provider's field names into a shared
// Message shape. Transient provider failures are folded into
// ErrProviderUnavailable so the scheduler can treat a timeout, a 429, and a
// 503 identically when deciding to fail over.
//
// Webhook signature schemes differ per provider:
//
//   - Twilio: base64 HMAC-SHA1 over URL + sorted POST params (X-Twilio-Signature)
//   - WhatsApp Cloud: "sha256=" + hex HMAC-SHA256 of the raw body (X-Hub-Signature-256)
//   - Messenger: "sha1=" + hex HMAC-SHA1 of the raw body (X-Hub-Signature)
//   - Telegram: constant-time secret token comparison (X-Telegram-Bot-Api-Secret-Token)
//   - SNS bridge: hex HMAC-SHA256 of the raw body (X-Webhook-Signature)
//
// When a shared secret is not configured each adapter consults its explicit
// enforcement flag: strict mode rejects, permissive mode admits. There is no
// silent default.
package provider
