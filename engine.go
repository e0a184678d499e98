package pingline

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/pingline/pingline/pkg/engagement"
	"github.com/pingline/pingline/pkg/gateway"
	"github.com/pingline/pingline/pkg/notification"
	"github.com/pingline/pingline/pkg/prefs"
	"github.com/pingline/pingline/pkg/provider"
	"github.com/pingline/pingline/pkg/scheduler"
	"github.com/pingline/pingline/pkg/tracker"
)

// Request is the scheduling request accepted by the engine.
type Request = scheduler.Request

// Insights bundles a user's engagement metrics with the recommendations
// derived from them.
type Insights struct {
	Metrics         engagement.Metrics          `json:"metrics"`
	Recommendations []engagement.Recommendation `json:"recommendations"`
}

// Engine is the notification delivery engine: one constructed object owning
// the gateway, stores, tracker, analyzer, and scheduler. The embedding
// application decides message content and calls down through this facade.
type Engine struct {
	gateway   *gateway.Gateway
	prefs     prefs.Store
	schedules scheduler.ScheduleStore
	tracker   *tracker.Tracker
	analyzer  *engagement.Analyzer
	refresher *engagement.Refresher
	scheduler *scheduler.Scheduler
	log       *slog.Logger

	deliveryStore tracker.Store
	refreshSpec   string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger overrides the default logger for every component.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithPreferenceStore replaces the in-memory preference store, typically
// with prefs.NewRedisStore.
func WithPreferenceStore(s prefs.Store) Option {
	return func(e *Engine) { e.prefs = s }
}

// WithDeliveryStore replaces the in-memory delivery store, typically with
// tracker.NewRedisStore.
func WithDeliveryStore(s tracker.Store) Option {
	return func(e *Engine) { e.deliveryStore = s }
}

// WithScheduleStore replaces the in-memory schedule store.
func WithScheduleStore(s scheduler.ScheduleStore) Option {
	return func(e *Engine) { e.schedules = s }
}

// WithEngagementRefresh starts a background cron recomputing every user's
// engagement metrics on the given spec, e.g. "@hourly".
func WithEngagementRefresh(spec string) Option {
	return func(e *Engine) { e.refreshSpec = spec }
}

// New wires the engine from a gateway configuration and the provider
// adapters built by the embedding application.
func New(cfg gateway.Config, adapters []provider.Adapter, opts ...Option) (*Engine, error) {
	e := &Engine{log: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}

	gw, err := gateway.New(cfg, adapters, gateway.WithLogger(e.log))
	if err != nil {
		return nil, err
	}
	e.gateway = gw

	if e.prefs == nil {
		e.prefs = prefs.NewMemoryStore()
	}
	if e.deliveryStore == nil {
		e.deliveryStore = tracker.NewMemoryStore()
	}
	e.tracker = tracker.New(e.deliveryStore, tracker.WithLogger(e.log))
	if e.schedules == nil {
		e.schedules = scheduler.NewMemoryScheduleStore()
	}

	e.analyzer = engagement.NewAnalyzer(e.deliveryStore, engagement.WithLocator(e.locate))

	if e.refreshSpec != "" {
		e.refresher = engagement.NewRefresher(e.analyzer,
			engagement.WithRefreshSpec(e.refreshSpec),
			engagement.WithRefreshLogger(e.log))
		if err := e.refresher.Start(); err != nil {
			return nil, err
		}
	}

	e.scheduler = scheduler.New(e.schedules, e.prefs, e.tracker, e.gateway,
		scheduler.WithLogger(e.log),
		scheduler.WithOptimalHours(e.analyzer),
	)
	return e, nil
}

// Close stops background work. The engine must not be used afterwards.
func (e *Engine) Close() {
	if e.refresher != nil {
		e.refresher.Stop()
	}
	e.tracker.Close()
}

// ScheduleNotification validates and stores a notification for delivery,
// returning the schedule with its optimized delivery time and channel.
func (e *Engine) ScheduleNotification(ctx context.Context, req Request) (*notification.Schedule, error) {
	return e.scheduler.Schedule(ctx, req)
}

// SendNotification dispatches a schedule now and returns the resulting
// delivery. Send failures are recorded on the delivery, not returned as
// errors.
func (e *Engine) SendNotification(ctx context.Context, scheduleID string) (*notification.Delivery, error) {
	return e.scheduler.Dispatch(ctx, scheduleID)
}

// CancelNotification cancels a schedule that has not been dispatched yet.
func (e *Engine) CancelNotification(ctx context.Context, scheduleID string) error {
	return e.scheduler.Cancel(ctx, scheduleID)
}

// TrackEngagement applies an engagement event reported by a provider
// callback or a client. A zero timestamp means now.
func (e *Engine) TrackEngagement(ctx context.Context, deliveryID string, event tracker.EventType, at time.Time) error {
	return e.tracker.Track(ctx, deliveryID, event, at)
}

// EngagementInsights recomputes the user's metrics over the last daysBack
// days and derives recommendations.
func (e *Engine) EngagementInsights(ctx context.Context, userID string, daysBack int) (Insights, error) {
	m, err := e.analyzer.Analyze(ctx, userID, daysBack)
	if err != nil {
		return Insights{}, err
	}
	return Insights{Metrics: m, Recommendations: engagement.Recommend(m)}, nil
}

// UpdatePreferences applies a partial preference update.
func (e *Engine) UpdatePreferences(ctx context.Context, userID string, patch prefs.Patch) (prefs.Preferences, error) {
	return e.prefs.Update(ctx, userID, patch)
}

// Preferences returns the user's preferences, creating defaults on first
// touch.
func (e *Engine) Preferences(ctx context.Context, userID string) (prefs.Preferences, error) {
	return e.prefs.Get(ctx, userID)
}

// Events exposes the stream of applied delivery events for alerting and
// analytics observers.
func (e *Engine) Events() <-chan tracker.Event {
	return e.tracker.Events()
}

// WebhookRouter returns the HTTP router handling inbound provider webhooks.
func (e *Engine) WebhookRouter() http.Handler {
	return e.gateway.Router()
}

func (e *Engine) locate(ctx context.Context, userID string) *time.Location {
	p, err := e.prefs.Get(ctx, userID)
	if err != nil {
		return time.UTC
	}
	return p.Location()
}
