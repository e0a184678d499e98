package provider

import "errors"

// Provider errors, designed for error wrapping and classification. Transient
// and permanent failures carry different retry semantics upstream: transient
// failures trigger failover, signature failures reject the inbound payload
// before any parsing happens.
var (
	// ErrProviderUnavailable wraps transient failures: network errors,
	// timeouts, HTTP 429 and 5xx responses.
	ErrProviderUnavailable = errors.New("provider temporarily unavailable")

	// ErrProviderRejected wraps permanent rejections (HTTP 4xx other than
	// 429, invalid recipients, malformed requests).
	ErrProviderRejected = errors.New("provider rejected the message")

	// ErrSignatureInvalid is returned when the recomputed digest does not
	// match the header-supplied signature.
	ErrSignatureInvalid = errors.New("webhook signature mismatch")

	// ErrSignatureMissing is returned in strict mode when the request
	// carries no signature header.
	ErrSignatureMissing = errors.New("webhook signature missing")

	// ErrNotConfigured is returned when the adapter lacks credentials for
	// the attempted operation and strict enforcement is on.
	ErrNotConfigured = errors.New("provider is not configured")

	// ErrInboundUnsupported is returned by outbound-only adapters for
	// webhook verification.
	ErrInboundUnsupported = errors.New("provider has no inbound webhook")
)

// IsTransient reports whether the error should be treated as retriable via
// failover rather than a permanent rejection.
func IsTransient(err error) bool {
	return errors.Is(err, ErrProviderUnavailable)
}
