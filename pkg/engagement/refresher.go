package engagement

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pingline/pingline/pkg/logger"
)

// Refresher recomputes metrics for every known user on a cron schedule so
// the scheduler always nudges against reasonably fresh optimal hours.
type Refresher struct {
	analyzer *Analyzer
	log      *slog.Logger
	spec     string
	timeout  time.Duration
	c        *cron.Cron
}

// RefresherOption configures a Refresher.
type RefresherOption func(*Refresher)

// WithRefreshSpec sets the cron spec. Defaults to hourly.
func WithRefreshSpec(spec string) RefresherOption {
	return func(r *Refresher) { r.spec = spec }
}

// WithRefreshTimeout bounds one full refresh pass.
func WithRefreshTimeout(d time.Duration) RefresherOption {
	return func(r *Refresher) { r.timeout = d }
}

// WithRefreshLogger overrides the default logger.
func WithRefreshLogger(log *slog.Logger) RefresherOption {
	return func(r *Refresher) { r.log = log }
}

// NewRefresher creates a stopped Refresher for the analyzer.
func NewRefresher(analyzer *Analyzer, opts ...RefresherOption) *Refresher {
	r := &Refresher{
		analyzer: analyzer,
		log:      slog.Default(),
		spec:     "@hourly",
		timeout:  5 * time.Minute,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start schedules the periodic refresh. It returns an error only when the
// cron spec does not parse.
func (r *Refresher) Start() error {
	r.c = cron.New()
	if _, err := r.c.AddFunc(r.spec, r.refreshAll); err != nil {
		return err
	}
	r.c.Start()
	return nil
}

// Stop halts scheduling and waits for a running refresh pass to finish.
func (r *Refresher) Stop() {
	if r.c == nil {
		return
	}
	<-r.c.Stop().Done()
}

// RefreshAll recomputes metrics for every user with delivery history.
func (r *Refresher) RefreshAll(ctx context.Context) {
	users, err := r.analyzer.history.Users(ctx)
	if err != nil {
		r.log.ErrorContext(ctx, "listing users for refresh", logger.Error(err))
		return
	}
	for _, userID := range users {
		if ctx.Err() != nil {
			return
		}
		if _, err := r.analyzer.Analyze(ctx, userID, DefaultWindowDays); err != nil {
			r.log.ErrorContext(ctx, "refreshing engagement metrics",
				logger.UserID(userID), logger.Error(err))
		}
	}
}

func (r *Refresher) refreshAll() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	r.RefreshAll(ctx)
}
