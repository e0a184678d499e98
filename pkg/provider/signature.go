package provider

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"sort"
)

// hmacSHA256Hex computes the hex-encoded HMAC-SHA256 digest of data.
func hmacSHA256Hex(secret string, data []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// hmacSHA1Hex computes the hex-encoded HMAC-SHA1 digest of data.
func hmacSHA1Hex(secret string, data []byte) string {
	h := hmac.New(sha1.New, []byte(secret))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// hmacSHA1Base64 computes the base64-encoded HMAC-SHA1 digest of data.
func hmacSHA1Base64(secret string, data []byte) string {
	h := hmac.New(sha1.New, []byte(secret))
	h.Write(data)
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// secureEqual compares two signature strings in constant time.
func secureEqual(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}

// verifyPrefixedDigest checks a "<scheme>=<hex>" header value against the
// recomputed digest of the raw body. Both Meta products use this shape:
// sha256= for WhatsApp Cloud, sha1= for Messenger.
func verifyPrefixedDigest(header, prefix, secret string, body []byte, enforce bool) error {
	if secret == "" {
		if enforce {
			return fmt.Errorf("%w: app secret missing", ErrNotConfigured)
		}
		return nil
	}
	if header == "" {
		if enforce {
			return ErrSignatureMissing
		}
		return nil
	}

	var expected string
	switch prefix {
	case "sha256=":
		expected = prefix + hmacSHA256Hex(secret, body)
	case "sha1=":
		expected = prefix + hmacSHA1Hex(secret, body)
	default:
		return fmt.Errorf("%w: unsupported digest scheme %q", ErrSignatureInvalid, prefix)
	}

	if !secureEqual(expected, header) {
		return ErrSignatureInvalid
	}
	return nil
}

// twilioSignatureBase builds the string Twilio signs: the full request URL
// followed by every POST parameter key and value concatenated in key order.
func twilioSignatureBase(requestURL string, form map[string][]string) []byte {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	base := requestURL
	for _, k := range keys {
		if len(form[k]) > 0 {
			base += k + form[k][0]
		}
	}
	return []byte(base)
}

// classifyResponse maps an HTTP response to the provider error taxonomy and
// drains the body so the connection can be reused. A nil return means the
// call succeeded.
func classifyResponse(name string, resp *http.Response) error {
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s returned %d", ErrProviderUnavailable, name, resp.StatusCode)
	default:
		return fmt.Errorf("%w: %s returned %d", ErrProviderRejected, name, resp.StatusCode)
	}
}

// transportError wraps a failed HTTP round trip. Network level failures are
// always transient from the caller's point of view.
func transportError(name string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrProviderUnavailable, name, err)
}
