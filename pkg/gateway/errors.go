package gateway

import "errors"

var (
	// ErrChannelUnavailable means no adapter is registered for the channel.
	// Callers treat this as a normal degraded condition, never a fault.
	ErrChannelUnavailable = errors.New("no provider registered for channel")

	// ErrSignatureRejected wraps a failed webhook verification. The payload
	// was never parsed.
	ErrSignatureRejected = errors.New("inbound webhook rejected")

	// ErrMalformedPayload means the payload verified but lacked the fields
	// required to normalize it (status callbacks, delivery receipts).
	ErrMalformedPayload = errors.New("inbound payload has no message")

	// ErrUnknownPlatform means no fingerprint matched the inbound event.
	ErrUnknownPlatform = errors.New("could not detect source platform")

	// ErrInvalidRouting wraps a routing file that cannot be read or parsed.
	ErrInvalidRouting = errors.New("invalid routing configuration")
)
