package provider

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mrz1836/postmark"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePostmark struct {
	resp postmark.EmailResponse
	err  error
	last postmark.Email
}

func (f *fakePostmark) SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error) {
	f.last = email
	return f.resp, f.err
}

func TestEmailSend(t *testing.T) {
	t.Run("delivers through postmark", func(t *testing.T) {
		client := &fakePostmark{}
		adapter := newEmailWithClient(client, EmailConfig{
			SenderEmail: "noreply@pingline.dev",
			Subject:     "Heads up",
		})

		require.NoError(t, adapter.Send(context.Background(), "user@example.com", "dinner time", ""))
		assert.Equal(t, "user@example.com", client.last.To)
		assert.Equal(t, "Heads up", client.last.Subject)
		assert.Equal(t, "dinner time", client.last.TextBody)
	})

	t.Run("postmark error code is a rejection", func(t *testing.T) {
		client := &fakePostmark{resp: postmark.EmailResponse{ErrorCode: 300, Message: "invalid address"}}
		adapter := newEmailWithClient(client, EmailConfig{SenderEmail: "noreply@pingline.dev"})

		assert.ErrorIs(t, adapter.Send(context.Background(), "bogus", "x", ""), ErrProviderRejected)
	})

	t.Run("transport error is transient", func(t *testing.T) {
		client := &fakePostmark{err: errors.New("connection refused")}
		adapter := newEmailWithClient(client, EmailConfig{SenderEmail: "noreply@pingline.dev"})

		assert.ErrorIs(t, adapter.Send(context.Background(), "user@example.com", "x", ""), ErrProviderUnavailable)
	})

	t.Run("unconfigured adapter", func(t *testing.T) {
		adapter := NewEmail(EmailConfig{})
		assert.ErrorIs(t, adapter.Send(context.Background(), "user@example.com", "x", ""), ErrNotConfigured)
	})
}

func TestEmailDevSender(t *testing.T) {
	dir := t.TempDir()
	adapter := NewEmail(EmailConfig{DevDir: dir})

	require.NoError(t, adapter.Send(context.Background(), "user@example.com", "local only", ""))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	raw, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)

	var saved map[string]string
	require.NoError(t, json.Unmarshal(raw, &saved))
	assert.Equal(t, "user@example.com", saved["to"])
	assert.Equal(t, "local only", saved["body"])
}
