package engagement

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pingline/pingline/pkg/notification"
)

// Trend labels how a user's engagement is moving across the analysis window.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendStable     Trend = "stable"
	TrendDecreasing Trend = "decreasing"
)

const (
	// DefaultWindowDays is the rolling analysis window.
	DefaultWindowDays = 30

	// optimalHourThreshold is the mean engagement score a send hour must
	// exceed to count as optimal.
	optimalHourThreshold = 0.6

	// Trend thresholds comparing second-half mean to first-half mean.
	trendUpFactor   = 1.1
	trendDownFactor = 0.9
)

// Metrics is the derived engagement summary for one user. It is a cache over
// delivery history, fully recomputable and never a source of truth.
type Metrics struct {
	UserID       string    `json:"user_id"`
	WindowDays   int       `json:"window_days"`
	Attempts     int       `json:"attempts"`
	Delivered    int       `json:"delivered"`
	Read         int       `json:"read"`
	Clicked      int       `json:"clicked"`
	DeliveryRate float64   `json:"delivery_rate"`
	ReadRate     float64   `json:"read_rate"`
	ClickRate    float64   `json:"click_rate"`
	OptimalHours []int     `json:"optimal_hours"`
	Trend        Trend     `json:"trend"`
	ComputedAt   time.Time `json:"computed_at"`
}

// History is the slice of the delivery store the analyzer reads.
type History interface {
	ListByUser(ctx context.Context, userID string, since time.Time) ([]*notification.Delivery, error)
	Users(ctx context.Context) ([]string, error)
}

// Analyzer aggregates delivery history into per-user engagement metrics and
// caches the latest result per user.
type Analyzer struct {
	history History
	locate  func(ctx context.Context, userID string) *time.Location
	now     func() time.Time

	mu    sync.RWMutex
	cache map[string]Metrics
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLocator supplies the user's timezone so optimal hours line up with the
// hours the scheduler works in. Defaults to UTC for everyone.
func WithLocator(locate func(ctx context.Context, userID string) *time.Location) Option {
	return func(a *Analyzer) { a.locate = locate }
}

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// NewAnalyzer creates an Analyzer over the given delivery history.
func NewAnalyzer(history History, opts ...Option) *Analyzer {
	a := &Analyzer{
		history: history,
		locate:  func(context.Context, string) *time.Location { return time.UTC },
		now:     time.Now,
		cache:   make(map[string]Metrics),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze recomputes metrics for the user over the last days days and caches
// the result. A zero or negative days falls back to the default window.
func (a *Analyzer) Analyze(ctx context.Context, userID string, days int) (Metrics, error) {
	if days <= 0 {
		days = DefaultWindowDays
	}
	now := a.now()
	since := now.AddDate(0, 0, -days)

	deliveries, err := a.history.ListByUser(ctx, userID, since)
	if err != nil {
		return Metrics{}, err
	}

	loc := a.locate(ctx, userID)
	m := compute(userID, days, deliveries, since, now, loc)

	a.mu.Lock()
	a.cache[userID] = m
	a.mu.Unlock()
	return m, nil
}

// Cached returns the last computed metrics for the user, if any.
func (a *Analyzer) Cached(userID string) (Metrics, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	m, ok := a.cache[userID]
	return m, ok
}

// OptimalHours returns the cached optimal send hours for the user, computing
// them on first use. An empty result means no hour stands out yet.
func (a *Analyzer) OptimalHours(ctx context.Context, userID string) ([]int, error) {
	if m, ok := a.Cached(userID); ok {
		return m.OptimalHours, nil
	}
	m, err := a.Analyze(ctx, userID, DefaultWindowDays)
	if err != nil {
		return nil, err
	}
	return m.OptimalHours, nil
}

func compute(userID string, days int, deliveries []*notification.Delivery, since, now time.Time, loc *time.Location) Metrics {
	m := Metrics{
		UserID:     userID,
		WindowDays: days,
		Trend:      TrendStable,
		ComputedAt: now,
	}

	hourScores := make(map[int][]float64)
	mid := since.Add(now.Sub(since) / 2)
	var firstSum, secondSum float64
	var firstN, secondN int

	for _, d := range deliveries {
		if d.SentAt == nil {
			continue
		}
		m.Attempts++
		if d.Status != notification.StatusFailed {
			m.Delivered++
		}
		if d.ReadAt != nil {
			m.Read++
		}
		if d.ClickedAt != nil {
			m.Clicked++
		}

		hour := d.SentAt.In(loc).Hour()
		hourScores[hour] = append(hourScores[hour], d.Score)

		if d.SentAt.Before(mid) {
			firstSum += d.Score
			firstN++
		} else {
			secondSum += d.Score
			secondN++
		}
	}

	if m.Attempts > 0 {
		m.DeliveryRate = float64(m.Delivered) / float64(m.Attempts)
		m.ReadRate = float64(m.Read) / float64(m.Attempts)
		m.ClickRate = float64(m.Clicked) / float64(m.Attempts)
	}

	for hour, scores := range hourScores {
		var sum float64
		for _, s := range scores {
			sum += s
		}
		if sum/float64(len(scores)) > optimalHourThreshold {
			m.OptimalHours = append(m.OptimalHours, hour)
		}
	}
	sort.Ints(m.OptimalHours)

	if firstN > 0 && secondN > 0 {
		firstMean := firstSum / float64(firstN)
		secondMean := secondSum / float64(secondN)
		switch {
		case firstMean == 0 && secondMean > 0:
			m.Trend = TrendIncreasing
		case firstMean == 0:
			m.Trend = TrendStable
		case secondMean > firstMean*trendUpFactor:
			m.Trend = TrendIncreasing
		case secondMean < firstMean*trendDownFactor:
			m.Trend = TrendDecreasing
		}
	}
	return m
}
