package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pingline/pingline/pkg/logger"
	"github.com/pingline/pingline/pkg/notification"
)

// EventType names an engagement event applied to a delivery.
type EventType string

const (
	EventSent      EventType = "sent"
	EventDelivered EventType = "delivered"
	EventFailed    EventType = "failed"
	EventRead      EventType = "read"
	EventClicked   EventType = "clicked"
	EventDismissed EventType = "dismissed"
)

// Event is an applied engagement event. Failures surface here so an observer
// can alert on them without the tracker calling back into anyone.
type Event struct {
	DeliveryID string
	ScheduleID string
	UserID     string
	Channel    notification.Channel
	Type       EventType
	Status     notification.Status
	Score      float64
	Reason     string
	At         time.Time
}

// Tracker records the delivery lifecycle. Transitions are monotonic: a late
// event for an earlier state never moves the status backward, though a read
// arriving after a click still backfills the read timestamp.
type Tracker struct {
	store  Store
	log    *slog.Logger
	now    func() time.Time
	events chan Event

	mu sync.Mutex
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger overrides the default logger.
func WithLogger(log *slog.Logger) Option {
	return func(t *Tracker) { t.log = log }
}

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithEventBuffer sets the event channel capacity.
func WithEventBuffer(n int) Option {
	return func(t *Tracker) { t.events = make(chan Event, n) }
}

// New creates a Tracker on the given store.
func New(store Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:  store,
		log:    slog.Default(),
		now:    time.Now,
		events: make(chan Event, 256),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Events exposes the stream of applied engagement events. When no observer
// drains it, events are dropped rather than blocking delivery recording.
func (t *Tracker) Events() <-chan Event {
	return t.events
}

// Close stops the event stream. No Record call may follow.
func (t *Tracker) Close() {
	close(t.events)
}

// Begin creates the initial scheduled delivery record for a schedule.
func (t *Tracker) Begin(ctx context.Context, d *notification.Delivery) error {
	if d.Status == "" {
		d.Status = notification.StatusScheduled
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = t.now()
	}
	if err := t.store.Create(ctx, d); err != nil {
		return err
	}
	t.log.DebugContext(ctx, "delivery created",
		logger.DeliveryID(d.ID),
		logger.UserID(d.UserID),
		logger.Channel(string(d.Channel)),
	)
	return nil
}

// Get returns a delivery by id.
func (t *Tracker) Get(ctx context.Context, deliveryID string) (*notification.Delivery, error) {
	return t.store.Get(ctx, deliveryID)
}

// History returns the user's deliveries created at or after since.
func (t *Tracker) History(ctx context.Context, userID string, since time.Time) ([]*notification.Delivery, error) {
	return t.store.ListByUser(ctx, userID, since)
}

// Track applies a named engagement event, the entry point for callers that
// receive event names over the wire.
func (t *Tracker) Track(ctx context.Context, deliveryID string, event EventType, at time.Time) error {
	switch event {
	case EventSent:
		return t.RecordSent(ctx, deliveryID, at)
	case EventDelivered:
		return t.RecordDelivered(ctx, deliveryID, at)
	case EventFailed:
		return t.RecordFailed(ctx, deliveryID, "reported by caller", at)
	case EventRead:
		return t.RecordRead(ctx, deliveryID, at)
	case EventClicked:
		return t.RecordClicked(ctx, deliveryID, at)
	case EventDismissed:
		return t.RecordDismissed(ctx, deliveryID, at)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownEvent, event)
	}
}

// RecordSent marks the delivery handed to a provider.
func (t *Tracker) RecordSent(ctx context.Context, deliveryID string, at time.Time) error {
	return t.apply(ctx, deliveryID, EventSent, notification.StatusSent, at, "")
}

// RecordDelivered marks provider-confirmed delivery.
func (t *Tracker) RecordDelivered(ctx context.Context, deliveryID string, at time.Time) error {
	return t.apply(ctx, deliveryID, EventDelivered, notification.StatusDelivered, at, "")
}

// RecordFailed marks the delivery failed with the given reason. Failed is
// terminal; failover creates a separate delivery rather than reviving this one.
func (t *Tracker) RecordFailed(ctx context.Context, deliveryID, reason string, at time.Time) error {
	return t.apply(ctx, deliveryID, EventFailed, notification.StatusFailed, at, reason)
}

// RecordRead marks the notification read by the user.
func (t *Tracker) RecordRead(ctx context.Context, deliveryID string, at time.Time) error {
	return t.apply(ctx, deliveryID, EventRead, notification.StatusRead, at, "")
}

// RecordClicked marks the notification's call to action followed.
func (t *Tracker) RecordClicked(ctx context.Context, deliveryID string, at time.Time) error {
	return t.apply(ctx, deliveryID, EventClicked, notification.StatusClicked, at, "")
}

// RecordDismissed marks the notification dismissed without engagement.
func (t *Tracker) RecordDismissed(ctx context.Context, deliveryID string, at time.Time) error {
	return t.apply(ctx, deliveryID, EventDismissed, notification.StatusDismissed, at, "")
}

func (t *Tracker) apply(ctx context.Context, deliveryID string, event EventType, to notification.Status, at time.Time, reason string) error {
	if at.IsZero() {
		at = t.now()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	d, err := t.store.Get(ctx, deliveryID)
	if err != nil {
		return err
	}

	if !notification.CanTransition(d.Status, to) {
		// A read landing after a click keeps the clicked status but the
		// timestamp is still worth keeping for recency scoring.
		if event == EventRead && d.Status == notification.StatusClicked && d.ReadAt == nil {
			d.ReadAt = &at
			d.Score = notification.EngagementScore(d)
			return t.store.Update(ctx, d)
		}
		t.log.DebugContext(ctx, "engagement event ignored",
			logger.DeliveryID(deliveryID),
			logger.EventType(string(event)),
			slog.String("status", string(d.Status)),
		)
		return nil
	}

	d.Status = to
	switch event {
	case EventSent:
		d.SentAt = &at
	case EventDelivered:
		d.DeliveredAt = &at
	case EventFailed:
		d.FailedAt = &at
		d.FailureReason = reason
	case EventRead:
		d.ReadAt = &at
	case EventClicked:
		d.ClickedAt = &at
		if d.ReadAt == nil {
			// A click implies the notification was read.
			d.ReadAt = &at
		}
	}
	d.Score = notification.EngagementScore(d)

	if err := t.store.Update(ctx, d); err != nil {
		return err
	}

	if event == EventFailed {
		t.log.WarnContext(ctx, "delivery failed",
			logger.DeliveryID(deliveryID),
			logger.UserID(d.UserID),
			logger.Channel(string(d.Channel)),
			slog.String("reason", reason),
		)
	}

	t.emit(Event{
		DeliveryID: d.ID,
		ScheduleID: d.ScheduleID,
		UserID:     d.UserID,
		Channel:    d.Channel,
		Type:       event,
		Status:     d.Status,
		Score:      d.Score,
		Reason:     reason,
		At:         at,
	})
	return nil
}

func (t *Tracker) emit(e Event) {
	select {
	case t.events <- e:
	default:
		t.log.Warn("event dropped, no observer draining",
			logger.DeliveryID(e.DeliveryID),
			logger.EventType(string(e.Type)),
		)
	}
}
