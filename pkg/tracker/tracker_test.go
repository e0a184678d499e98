package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pingline/pingline/pkg/notification"
)

func newDelivery(t *testing.T, tr *Tracker, userID string) *notification.Delivery {
	t.Helper()
	d := &notification.Delivery{
		ID:         uuid.NewString(),
		ScheduleID: uuid.NewString(),
		UserID:     userID,
		Type:       notification.TypeReminder,
		Channel:    notification.ChannelPush,
	}
	require.NoError(t, tr.Begin(context.Background(), d))
	return d
}

func TestTrackerLifecycle(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	tr := New(NewMemoryStore(), WithClock(func() time.Time { return base }))
	d := newDelivery(t, tr, "user-1")

	require.NoError(t, tr.RecordSent(ctx, d.ID, base))
	require.NoError(t, tr.RecordDelivered(ctx, d.ID, base.Add(time.Second)))
	require.NoError(t, tr.RecordRead(ctx, d.ID, base.Add(2*time.Minute)))
	require.NoError(t, tr.RecordClicked(ctx, d.ID, base.Add(3*time.Minute)))

	got, err := tr.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, notification.StatusClicked, got.Status)
	require.NotNil(t, got.ReadAt)
	// Read within five minutes of send earns the full recency bonus.
	assert.InDelta(t, 1.0, got.Score, 1e-9)
}

func TestTrackerMonotonic(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("late delivered event does not regress read", func(t *testing.T) {
		tr := New(NewMemoryStore())
		d := newDelivery(t, tr, "user-1")

		require.NoError(t, tr.RecordSent(ctx, d.ID, now))
		require.NoError(t, tr.RecordRead(ctx, d.ID, now.Add(time.Minute)))
		require.NoError(t, tr.RecordDelivered(ctx, d.ID, now.Add(2*time.Minute)))

		got, err := tr.Get(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusRead, got.Status)
		assert.Nil(t, got.DeliveredAt)
	})

	t.Run("read after click backfills timestamp only", func(t *testing.T) {
		tr := New(NewMemoryStore())
		d := newDelivery(t, tr, "user-1")

		require.NoError(t, tr.RecordSent(ctx, d.ID, now))
		require.NoError(t, tr.RecordClicked(ctx, d.ID, now.Add(2*time.Hour)))

		readAt := now.Add(30 * time.Minute)
		got, err := tr.Get(ctx, d.ID)
		require.NoError(t, err)
		require.NotNil(t, got.ReadAt) // click implied a read

		// Clear the implied timestamp to exercise the backfill path.
		got.ReadAt = nil
		require.NoError(t, tr.store.Update(ctx, got))
		require.NoError(t, tr.RecordRead(ctx, d.ID, readAt))

		got, err = tr.Get(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusClicked, got.Status)
		require.NotNil(t, got.ReadAt)
		assert.Equal(t, readAt, *got.ReadAt)
	})

	t.Run("failed is terminal", func(t *testing.T) {
		tr := New(NewMemoryStore())
		d := newDelivery(t, tr, "user-1")

		require.NoError(t, tr.RecordSent(ctx, d.ID, now))
		require.NoError(t, tr.RecordFailed(ctx, d.ID, "provider timeout", now.Add(time.Second)))
		require.NoError(t, tr.RecordRead(ctx, d.ID, now.Add(time.Minute)))

		got, err := tr.Get(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusFailed, got.Status)
		assert.Equal(t, "provider timeout", got.FailureReason)
		assert.Zero(t, got.Score)
	})

	t.Run("dismiss allowed from delivered", func(t *testing.T) {
		tr := New(NewMemoryStore())
		d := newDelivery(t, tr, "user-1")

		require.NoError(t, tr.RecordSent(ctx, d.ID, now))
		require.NoError(t, tr.RecordDelivered(ctx, d.ID, now.Add(time.Second)))
		require.NoError(t, tr.RecordDismissed(ctx, d.ID, now.Add(time.Minute)))
		require.NoError(t, tr.RecordClicked(ctx, d.ID, now.Add(2*time.Minute)))

		got, err := tr.Get(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusDismissed, got.Status)
	})
}

func TestTrackerEvents(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	tr := New(NewMemoryStore(), WithEventBuffer(8))
	d := newDelivery(t, tr, "user-1")

	require.NoError(t, tr.RecordSent(ctx, d.ID, now))
	require.NoError(t, tr.RecordFailed(ctx, d.ID, "unreachable", now.Add(time.Second)))
	tr.Close()

	var got []Event
	for e := range tr.Events() {
		got = append(got, e)
	}
	require.Len(t, got, 2)
	assert.Equal(t, EventSent, got[0].Type)
	assert.Equal(t, EventFailed, got[1].Type)
	assert.Equal(t, "unreachable", got[1].Reason)
	assert.Equal(t, d.UserID, got[1].UserID)
}

func TestTrackerEventBufferOverflow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	tr := New(NewMemoryStore(), WithEventBuffer(1))

	// Recording must not block when nothing drains the channel.
	for i := 0; i < 3; i++ {
		d := newDelivery(t, tr, "user-1")
		require.NoError(t, tr.RecordSent(ctx, d.ID, now))
	}
	assert.Len(t, tr.Events(), 1)
}

func TestTrack(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	tr := New(NewMemoryStore())
	d := newDelivery(t, tr, "user-1")

	require.NoError(t, tr.Track(ctx, d.ID, EventSent, now))
	require.NoError(t, tr.Track(ctx, d.ID, EventRead, now.Add(time.Minute)))

	err := tr.Track(ctx, d.ID, EventType("forwarded"), now)
	assert.ErrorIs(t, err, ErrUnknownEvent)

	err = tr.Track(ctx, "missing", EventSent, now)
	assert.ErrorIs(t, err, ErrDeliveryNotFound)
}

func TestMemoryStoreHistory(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Create(ctx, &notification.Delivery{
			ID:        uuid.NewString(),
			UserID:    "user-1",
			Channel:   notification.ChannelSMS,
			Status:    notification.StatusScheduled,
			CreatedAt: base.AddDate(0, 0, i),
		}))
	}
	require.NoError(t, store.Create(ctx, &notification.Delivery{
		ID:        uuid.NewString(),
		UserID:    "user-2",
		Channel:   notification.ChannelSMS,
		Status:    notification.StatusScheduled,
		CreatedAt: base,
	}))

	recent, err := store.ListByUser(ctx, "user-1", base.AddDate(0, 0, 3))
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	all, err := store.ListByUser(ctx, "user-1", time.Time{})
	require.NoError(t, err)
	assert.Len(t, all, 5)

	users, err := store.Users(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"user-1", "user-2"}, users)
}
