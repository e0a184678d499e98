package notification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"scheduled to sent", StatusScheduled, StatusSent, true},
		{"sent to delivered", StatusSent, StatusDelivered, true},
		{"sent to failed", StatusSent, StatusFailed, true},
		{"delivered to read", StatusDelivered, StatusRead, true},
		{"read to clicked", StatusRead, StatusClicked, true},
		{"clicked to read is backward", StatusClicked, StatusRead, false},
		{"delivered to sent is backward", StatusDelivered, StatusSent, false},
		{"delivered to failed has equal rank", StatusDelivered, StatusFailed, false},
		{"failed never recovers", StatusFailed, StatusDelivered, false},
		{"failed cannot be dismissed", StatusFailed, StatusDismissed, false},
		{"read can be dismissed", StatusRead, StatusDismissed, true},
		{"scheduled can be dismissed", StatusScheduled, StatusDismissed, true},
		{"dismissed is terminal", StatusDismissed, StatusRead, false},
		{"same state is a no-op", StatusSent, StatusSent, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestEngagementScore(t *testing.T) {
	sent := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		ts := sent.Add(d)
		return &ts
	}

	tests := []struct {
		name     string
		delivery Delivery
		want     float64
	}{
		{
			name:     "failed delivery scores zero",
			delivery: Delivery{Status: StatusFailed, FailedAt: at(time.Second)},
			want:     0,
		},
		{
			name:     "delivered but never read",
			delivery: Delivery{Status: StatusDelivered, SentAt: &sent},
			want:     0.3,
		},
		{
			name:     "read within five minutes",
			delivery: Delivery{Status: StatusRead, SentAt: &sent, ReadAt: at(2 * time.Minute)},
			want:     0.9,
		},
		{
			name:     "read within an hour",
			delivery: Delivery{Status: StatusRead, SentAt: &sent, ReadAt: at(30 * time.Minute)},
			want:     0.8,
		},
		{
			name:     "read after a day",
			delivery: Delivery{Status: StatusRead, SentAt: &sent, ReadAt: at(24 * time.Hour)},
			want:     0.7,
		},
		{
			name: "read fast and clicked caps at one",
			delivery: Delivery{
				Status: StatusClicked, SentAt: &sent,
				ReadAt: at(time.Minute), ClickedAt: at(2 * time.Minute),
			},
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, EngagementScore(&tt.delivery), 1e-9)
		})
	}
}

// Score must not decrease as engagement accumulates on otherwise identical
// deliveries.
func TestEngagementScoreMonotonic(t *testing.T) {
	sent := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	read := sent.Add(10 * time.Minute)
	clicked := sent.Add(11 * time.Minute)

	neither := Delivery{Status: StatusDelivered, SentAt: &sent}
	readOnly := Delivery{Status: StatusRead, SentAt: &sent, ReadAt: &read}
	readClick := Delivery{Status: StatusClicked, SentAt: &sent, ReadAt: &read, ClickedAt: &clicked}

	assert.GreaterOrEqual(t, EngagementScore(&readOnly), EngagementScore(&neither))
	assert.GreaterOrEqual(t, EngagementScore(&readClick), EngagementScore(&readOnly))
}

func TestScheduleIsExpired(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.False(t, (&Schedule{}).IsExpired(now))
	assert.False(t, (&Schedule{ExpiresAt: &future}).IsExpired(now))
	assert.True(t, (&Schedule{ExpiresAt: &past}).IsExpired(now))
}
