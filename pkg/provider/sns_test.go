package provider

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSNS struct {
	err  error
	last *sns.PublishInput
}

func (f *fakeSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.last = params
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{}, nil
}

func TestSNSSend(t *testing.T) {
	t.Run("publishes to phone number", func(t *testing.T) {
		client := &fakeSNS{}
		adapter := NewSNSSMS(client, SNSConfig{SenderID: "PINGLINE"})

		require.NoError(t, adapter.Send(context.Background(), "+15551234567", "hi", ""))
		require.NotNil(t, client.last)
		assert.Equal(t, "+15551234567", *client.last.PhoneNumber)
		assert.Equal(t, "hi", *client.last.Message)
		assert.Contains(t, client.last.MessageAttributes, "AWS.SNS.SMS.SenderID")
	})

	t.Run("throttling is transient", func(t *testing.T) {
		client := &fakeSNS{err: &smithy.GenericAPIError{Code: "Throttling", Message: "slow down"}}
		adapter := NewSNSSMS(client, SNSConfig{})

		err := adapter.Send(context.Background(), "+15551234567", "hi", "")
		assert.ErrorIs(t, err, ErrProviderUnavailable)
	})

	t.Run("invalid parameter is permanent", func(t *testing.T) {
		client := &fakeSNS{err: &smithy.GenericAPIError{Code: "InvalidParameter", Message: "bad number"}}
		adapter := NewSNSSMS(client, SNSConfig{})

		err := adapter.Send(context.Background(), "bogus", "hi", "")
		assert.ErrorIs(t, err, ErrProviderRejected)
	})

	t.Run("network failure is transient", func(t *testing.T) {
		client := &fakeSNS{err: errors.New("connection reset")}
		adapter := NewSNSSMS(client, SNSConfig{})

		assert.ErrorIs(t, adapter.Send(context.Background(), "+15551234567", "hi", ""), ErrProviderUnavailable)
	})

	t.Run("nil client", func(t *testing.T) {
		adapter := NewSNSSMS(nil, SNSConfig{})
		assert.ErrorIs(t, adapter.Send(context.Background(), "+15551234567", "hi", ""), ErrNotConfigured)
	})
}

func TestSNSVerifyWebhook(t *testing.T) {
	const secret = "bridge-secret"
	body := []byte(`{"originationNumber":"+15551234567"}`)

	adapter := NewSNSSMS(nil, SNSConfig{WebhookSecret: secret, EnforceSignature: true})

	t.Run("valid bridge signature", func(t *testing.T) {
		req := WebhookRequest{Header: http.Header{}, Body: body}
		req.Header.Set("X-Webhook-Signature", hmacSHA256Hex(secret, body))
		assert.NoError(t, adapter.VerifyWebhook(req))
	})

	t.Run("tampered body", func(t *testing.T) {
		req := WebhookRequest{Header: http.Header{}, Body: []byte(`{"originationNumber":"+1666"}`)}
		req.Header.Set("X-Webhook-Signature", hmacSHA256Hex(secret, body))
		assert.ErrorIs(t, adapter.VerifyWebhook(req), ErrSignatureInvalid)
	})
}

func TestSNSParseIncoming(t *testing.T) {
	adapter := NewSNSSMS(nil, SNSConfig{})

	msg := adapter.ParseIncoming(map[string]any{
		"originationNumber": "+15551234567",
		"messageBody":       "STOP",
	})
	require.NotNil(t, msg)
	assert.Equal(t, "sms", msg.Platform)
	assert.Equal(t, "+15551234567", msg.UserID)
	assert.Equal(t, "STOP", msg.Text)

	assert.Nil(t, adapter.ParseIncoming(map[string]any{"messageBody": "no sender"}))
}
