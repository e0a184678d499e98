// Package gateway owns the provider adapter registry. Outbound, it routes a
// send on a logical channel to the provider selected for that channel at
// startup. Inbound, it detects which platform a webhook belongs to, verifies
// the signature through the matched adapter, and normalizes the payload -
// failing closed: nothing is parsed before verification passes.
//
// Provider selection is configuration driven. When both a primary and a
// legacy provider are configured for a channel (Twilio and SNS for SMS), the
// routing preference decides which one serves outbound traffic; inbound
// webhooks are always verified by the adapter registered for the channel.
package gateway
