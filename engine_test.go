package pingline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pingline/pingline/pkg/gateway"
	"github.com/pingline/pingline/pkg/notification"
	"github.com/pingline/pingline/pkg/prefs"
	"github.com/pingline/pingline/pkg/provider"
	"github.com/pingline/pingline/pkg/tracker"
)

type stubAdapter struct {
	name    string
	channel notification.Channel
	fail    error
	sent    []string
}

func (a *stubAdapter) Name() string                  { return a.name }
func (a *stubAdapter) Channel() notification.Channel { return a.channel }

func (a *stubAdapter) Send(_ context.Context, to, _, _ string) error {
	if a.fail != nil {
		return a.fail
	}
	a.sent = append(a.sent, to)
	return nil
}

func (a *stubAdapter) VerifyWebhook(provider.WebhookRequest) error { return nil }

func (a *stubAdapter) ParseIncoming(map[string]any) *provider.Message { return nil }

func newEngine(t *testing.T, adapters ...provider.Adapter) *Engine {
	t.Helper()
	e, err := New(gateway.Config{}, adapters)
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func withAddresses(t *testing.T, e *Engine) {
	t.Helper()
	_, err := e.UpdatePreferences(context.Background(), "user-1", prefs.Patch{
		Addresses: map[notification.Channel]string{
			notification.ChannelPush: "device-token-1",
			notification.ChannelSMS:  "+15551234567",
		},
	})
	require.NoError(t, err)
}

func TestEngineEndToEnd(t *testing.T) {
	ctx := context.Background()
	push := &stubAdapter{name: "fcm", channel: notification.ChannelPush}
	e := newEngine(t, push)
	withAddresses(t, e)

	sched, err := e.ScheduleNotification(ctx, Request{
		UserID:   "user-1",
		Type:     notification.TypeReminder,
		Title:    "Water the plants",
		Content:  "The basil is looking thirsty",
		Priority: notification.PriorityNormal,
	})
	require.NoError(t, err)
	assert.Equal(t, notification.ChannelPush, sched.Channel)

	d, err := e.SendNotification(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, notification.StatusDelivered, d.Status)
	assert.Equal(t, []string{"device-token-1"}, push.sent)

	require.NoError(t, e.TrackEngagement(ctx, d.ID, tracker.EventRead, time.Time{}))
	require.NoError(t, e.TrackEngagement(ctx, d.ID, tracker.EventClicked, time.Time{}))

	insights, err := e.EngagementInsights(ctx, "user-1", 30)
	require.NoError(t, err)
	assert.Equal(t, 1, insights.Metrics.Attempts)
	assert.InDelta(t, 1.0, insights.Metrics.ReadRate, 1e-9)
	assert.InDelta(t, 1.0, insights.Metrics.ClickRate, 1e-9)
}

func TestEngineFailover(t *testing.T) {
	ctx := context.Background()
	push := &stubAdapter{name: "fcm", channel: notification.ChannelPush, fail: errors.New("unreachable")}
	sms := &stubAdapter{name: "twilio", channel: notification.ChannelSMS}
	e := newEngine(t, push, sms)
	withAddresses(t, e)

	sched, err := e.ScheduleNotification(ctx, Request{
		UserID:   "user-1",
		Type:     notification.TypeReminder,
		Content:  "hello",
		Priority: notification.PriorityNormal,
		Channel:  notification.ChannelPush,
	})
	require.NoError(t, err)

	d, err := e.SendNotification(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, notification.StatusDelivered, d.Status)
	assert.Equal(t, notification.ChannelSMS, d.Channel)
	assert.Equal(t, notification.ChannelPush, d.FallbackFrom)
	assert.Equal(t, []string{"+15551234567"}, sms.sent)
}

func TestEngineDisabledType(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, &stubAdapter{name: "fcm", channel: notification.ChannelPush})

	_, err := e.UpdatePreferences(ctx, "user-1", prefs.Patch{
		EnabledTypes: map[notification.Type]bool{notification.TypeDigest: false},
	})
	require.NoError(t, err)

	_, err = e.ScheduleNotification(ctx, Request{
		UserID:   "user-1",
		Type:     notification.TypeDigest,
		Content:  "weekly digest",
		Priority: notification.PriorityLow,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "digest")
}

func TestEngineCancel(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, &stubAdapter{name: "fcm", channel: notification.ChannelPush})
	withAddresses(t, e)

	sched, err := e.ScheduleNotification(ctx, Request{
		UserID:   "user-1",
		Type:     notification.TypeReminder,
		Content:  "hello",
		Priority: notification.PriorityNormal,
	})
	require.NoError(t, err)
	require.NoError(t, e.CancelNotification(ctx, sched.ID))

	_, err = e.SendNotification(ctx, sched.ID)
	assert.Error(t, err)
}

func TestEngineEvents(t *testing.T) {
	ctx := context.Background()
	push := &stubAdapter{name: "fcm", channel: notification.ChannelPush}
	e := newEngine(t, push)
	withAddresses(t, e)

	sched, err := e.ScheduleNotification(ctx, Request{
		UserID:   "user-1",
		Type:     notification.TypeAlert,
		Content:  "heads up",
		Priority: notification.PriorityHigh,
		Channel:  notification.ChannelPush,
	})
	require.NoError(t, err)
	_, err = e.SendNotification(ctx, sched.ID)
	require.NoError(t, err)

	// Sent and delivered events are on the stream.
	first := <-e.Events()
	second := <-e.Events()
	assert.Equal(t, tracker.EventSent, first.Type)
	assert.Equal(t, tracker.EventDelivered, second.Type)
	assert.Equal(t, "user-1", first.UserID)
}
