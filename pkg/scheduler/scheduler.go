package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pingline/pingline/pkg/logger"
	"github.com/pingline/pingline/pkg/notification"
	"github.com/pingline/pingline/pkg/prefs"
	"github.com/pingline/pingline/pkg/tracker"
)

// nonUrgentTTL is how long a non-urgent schedule stays deliverable after its
// optimized delivery time.
const nonUrgentTTL = 24 * time.Hour

// Sender is the slice of the messaging gateway the scheduler depends on.
type Sender interface {
	Available(channel notification.Channel) bool
	Send(ctx context.Context, channel notification.Channel, to, body, mediaURL string) error
}

// OptimalHourSource supplies the hours where a user's past engagement was
// strongest. An empty slice means no preference.
type OptimalHourSource interface {
	OptimalHours(ctx context.Context, userID string) ([]int, error)
}

// Request describes one notification to schedule. At and Channel are
// optional; zero values let the scheduler decide.
type Request struct {
	UserID       string
	Type         notification.Type
	Title        string
	Content      string
	Priority     notification.Priority
	At           time.Time
	Channel      notification.Channel
	TemplateMeta map[string]string
}

// Scheduler decides when and over which channel a notification goes out,
// then hands dispatch to the gateway with single-retry failover. All
// per-user decisions run under a per-user lock.
type Scheduler struct {
	schedules  ScheduleStore
	prefs      prefs.Store
	deliveries *tracker.Tracker
	gateway    Sender
	optimal    OptimalHourSource
	log        *slog.Logger
	now        func() time.Time
	locks      *userLocks
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger overrides the default logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Scheduler) { s.log = log }
}

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithOptimalHours wires an engagement source for the optimal-hour nudge.
// Without one, scheduling applies quiet hours only.
func WithOptimalHours(src OptimalHourSource) Option {
	return func(s *Scheduler) { s.optimal = src }
}

// New creates a Scheduler over the given collaborators.
func New(schedules ScheduleStore, preferences prefs.Store, deliveries *tracker.Tracker, gateway Sender, opts ...Option) *Scheduler {
	s := &Scheduler{
		schedules:  schedules,
		prefs:      preferences,
		deliveries: deliveries,
		gateway:    gateway,
		log:        slog.Default(),
		now:        time.Now,
		locks:      newUserLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule validates the request against the user's preferences, picks a
// channel and an optimized delivery time, and stores the resulting schedule.
// It fails with *PreferenceError when the type is disabled and with
// *FrequencyLimitError when a cap is reached; neither stores anything.
func (s *Scheduler) Schedule(ctx context.Context, req Request) (*notification.Schedule, error) {
	unlock := s.locks.Lock(req.UserID)
	defer unlock()

	p, err := s.prefs.Get(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("loading preferences: %w", err)
	}
	if !p.TypeEnabled(req.Type) {
		return nil, &PreferenceError{UserID: req.UserID, Type: req.Type}
	}

	now := s.now()
	requested := req.At
	if requested.IsZero() {
		requested = now
	}

	if err := s.checkCaps(ctx, p, req, now); err != nil {
		return nil, err
	}

	channel := req.Channel
	if channel == "" {
		channel = s.resolveChannel(p, req.Type, req.Priority)
	}

	deliverAt := s.optimizeTime(ctx, p, req.UserID, requested, now)

	sched := &notification.Schedule{
		ID:           uuid.NewString(),
		UserID:       req.UserID,
		Type:         req.Type,
		Title:        req.Title,
		Content:      req.Content,
		Priority:     req.Priority,
		Channel:      channel,
		RequestedAt:  requested,
		DeliverAt:    deliverAt,
		CreatedAt:    now,
		TemplateMeta: req.TemplateMeta,
	}
	if req.Priority != notification.PriorityUrgent {
		expires := deliverAt.Add(nonUrgentTTL)
		sched.ExpiresAt = &expires
	}

	if err := s.schedules.Create(ctx, sched); err != nil {
		return nil, fmt.Errorf("storing schedule: %w", err)
	}

	s.log.InfoContext(ctx, "notification scheduled",
		logger.ScheduleID(sched.ID),
		logger.UserID(sched.UserID),
		logger.NotificationType(string(sched.Type)),
		logger.Channel(string(sched.Channel)),
		slog.Time("deliver_at", sched.DeliverAt),
	)
	return sched, nil
}

// Cancel marks a schedule cancelled. It fails once the schedule has been
// dispatched.
func (s *Scheduler) Cancel(ctx context.Context, scheduleID string) error {
	sched, err := s.schedules.Get(ctx, scheduleID)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(sched.UserID)
	defer unlock()

	sched, err = s.schedules.Get(ctx, scheduleID)
	if err != nil {
		return err
	}
	if sched.Dispatched {
		return ErrAlreadyDispatched
	}
	sched.Cancelled = true
	return s.schedules.Update(ctx, sched)
}

// Dispatch consumes a schedule and sends it through the gateway, falling
// back over exactly one alternative channel on failure. The returned
// delivery carries the outcome: a send failure is a recorded result, not an
// error. Errors are reserved for schedules that cannot be dispatched at all.
func (s *Scheduler) Dispatch(ctx context.Context, scheduleID string) (*notification.Delivery, error) {
	sched, err := s.schedules.Get(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(sched.UserID)
	defer unlock()

	// Re-read under the lock; cancellation and expiry are checked
	// immediately before sending.
	sched, err = s.schedules.Get(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	switch {
	case sched.Dispatched:
		return nil, ErrAlreadyDispatched
	case sched.Cancelled:
		return nil, ErrScheduleCancelled
	case sched.IsExpired(now):
		s.log.InfoContext(ctx, "expired schedule dropped",
			logger.ScheduleID(sched.ID), logger.UserID(sched.UserID))
		return nil, ErrScheduleExpired
	}

	sched.Dispatched = true
	if err := s.schedules.Update(ctx, sched); err != nil {
		return nil, fmt.Errorf("consuming schedule: %w", err)
	}

	p, err := s.prefs.Get(ctx, sched.UserID)
	if err != nil {
		return nil, fmt.Errorf("loading preferences: %w", err)
	}

	primary, sendErr := s.attempt(ctx, sched, p, sched.Channel, "")
	if sendErr == nil {
		return primary, nil
	}
	if primary == nil {
		return nil, sendErr
	}

	fb, ok := Fallback(sched.Channel)
	if !ok {
		if err := s.deliveries.RecordFailed(ctx, primary.ID, sendErr.Error(), s.now()); err != nil {
			return nil, err
		}
		return s.deliveries.Get(ctx, primary.ID)
	}

	if err := s.deliveries.RecordFailed(ctx, primary.ID, sendErr.Error(), s.now()); err != nil {
		return nil, err
	}
	s.log.WarnContext(ctx, "primary channel failed, trying fallback",
		logger.ScheduleID(sched.ID),
		logger.Channel(string(sched.Channel)),
		slog.String("fallback", string(fb)),
		logger.Error(sendErr),
	)

	fallback, fbErr := s.attempt(ctx, sched, p, fb, sched.Channel)
	if fallback == nil {
		return nil, fbErr
	}
	if fbErr != nil {
		reason := fmt.Sprintf("%s: %v; fallback %s: %v", sched.Channel, sendErr, fb, fbErr)
		if err := s.deliveries.RecordFailed(ctx, fallback.ID, reason, s.now()); err != nil {
			return nil, err
		}
	}
	return s.deliveries.Get(ctx, fallback.ID)
}

// attempt creates the delivery record for one channel and performs the send.
// On success the delivery is recorded sent and delivered; on failure it is
// returned alongside the error with its failure not yet recorded, so the
// caller controls the final reason.
func (s *Scheduler) attempt(ctx context.Context, sched *notification.Schedule, p prefs.Preferences, channel notification.Channel, fallbackFrom notification.Channel) (*notification.Delivery, error) {
	d := &notification.Delivery{
		ID:           uuid.NewString(),
		ScheduleID:   sched.ID,
		UserID:       sched.UserID,
		Type:         sched.Type,
		Channel:      channel,
		FallbackFrom: fallbackFrom,
		CreatedAt:    s.now(),
	}
	if err := s.deliveries.Begin(ctx, d); err != nil {
		return nil, err
	}

	addr, ok := p.Address(channel)
	if !ok {
		return d, fmt.Errorf("no %s address on record for user %s", channel, sched.UserID)
	}

	if err := s.gateway.Send(ctx, channel, addr, composeBody(sched), sched.TemplateMeta["media_url"]); err != nil {
		return d, err
	}

	sentAt := s.now()
	if err := s.deliveries.RecordSent(ctx, d.ID, sentAt); err != nil {
		return nil, err
	}
	if err := s.deliveries.RecordDelivered(ctx, d.ID, sentAt); err != nil {
		return nil, err
	}
	return s.deliveries.Get(ctx, d.ID)
}

// resolveChannel picks the first gateway-available channel from the user's
// preferred order for the type, falling back to a priority default: urgent
// rides the most reliable channel, high priority pushes, everything else
// stays in-app.
func (s *Scheduler) resolveChannel(p prefs.Preferences, t notification.Type, priority notification.Priority) notification.Channel {
	for _, ch := range p.ChannelOrder[t] {
		if s.gateway.Available(ch) {
			return ch
		}
	}
	switch priority {
	case notification.PriorityUrgent:
		return notification.ChannelSMS
	case notification.PriorityHigh:
		return notification.ChannelPush
	default:
		return notification.ChannelInApp
	}
}

// optimizeTime applies the quiet-hours shift and then the optimal-hour
// nudge, all in the user's timezone.
func (s *Scheduler) optimizeTime(ctx context.Context, p prefs.Preferences, userID string, requested, now time.Time) time.Time {
	candidate := requested.In(p.Location())
	candidate = shiftQuietHours(candidate, p.QuietHours)

	if s.optimal != nil {
		hours, err := s.optimal.OptimalHours(ctx, userID)
		if err != nil {
			s.log.WarnContext(ctx, "optimal hours unavailable",
				logger.UserID(userID), logger.Error(err))
		} else if len(hours) > 0 {
			candidate = nudgeOptimal(candidate, hours, p.QuietHours, now.In(p.Location()))
		}
	}
	return candidate
}

// checkCaps enforces the user's daily and weekly frequency caps for the
// notification type. Days and weeks are bounded in the user's timezone,
// weeks starting Monday.
func (s *Scheduler) checkCaps(ctx context.Context, p prefs.Preferences, req Request, now time.Time) error {
	loc := p.Location()
	local := now.In(loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	weekStart := dayStart.AddDate(0, 0, -((int(local.Weekday()) + 6) % 7))

	if limit, ok := p.DailyCaps[req.Type]; ok && limit > 0 {
		n, err := s.schedules.CountByType(ctx, req.UserID, req.Type, dayStart)
		if err != nil {
			return fmt.Errorf("counting daily sends: %w", err)
		}
		if n >= limit {
			return &FrequencyLimitError{UserID: req.UserID, Type: req.Type, Period: "daily", Limit: limit}
		}
	}
	if limit, ok := p.WeeklyCaps[req.Type]; ok && limit > 0 {
		n, err := s.schedules.CountByType(ctx, req.UserID, req.Type, weekStart)
		if err != nil {
			return fmt.Errorf("counting weekly sends: %w", err)
		}
		if n >= limit {
			return &FrequencyLimitError{UserID: req.UserID, Type: req.Type, Period: "weekly", Limit: limit}
		}
	}
	return nil
}

func composeBody(sched *notification.Schedule) string {
	if sched.Title == "" {
		return sched.Content
	}
	if sched.Content == "" {
		return sched.Title
	}
	return sched.Title + "\n\n" + sched.Content
}

// IsRejection reports whether the error is a local policy rejection rather
// than an operational failure, so callers can degrade gracefully.
func IsRejection(err error) bool {
	var prefErr *PreferenceError
	var freqErr *FrequencyLimitError
	return errors.As(err, &prefErr) || errors.As(err, &freqErr) ||
		errors.Is(err, ErrScheduleExpired) || errors.Is(err, ErrScheduleCancelled)
}
