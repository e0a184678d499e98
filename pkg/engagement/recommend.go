package engagement

import "fmt"

// RecommendationKind names the lever a recommendation pulls.
type RecommendationKind string

const (
	RecommendTiming    RecommendationKind = "timing"
	RecommendChannel   RecommendationKind = "channel"
	RecommendFrequency RecommendationKind = "frequency"
	RecommendContent   RecommendationKind = "content"
)

// Thresholds below which a metric triggers a recommendation.
const (
	lowReadRate     = 0.3
	lowDeliveryRate = 0.8
	lowClickRate    = 0.15
)

// Recommendation is one concrete suggestion for improving a user's
// engagement, with a rough estimate of the rate improvement to expect.
type Recommendation struct {
	Kind                RecommendationKind `json:"kind"`
	Reason              string             `json:"reason"`
	ExpectedImprovement float64            `json:"expected_improvement"`
	Actions             []string           `json:"actions"`
}

// Recommend derives optimization suggestions from the metrics. An empty
// result means nothing stands out.
func Recommend(m Metrics) []Recommendation {
	if m.Attempts == 0 {
		return nil
	}

	var recs []Recommendation

	if m.ReadRate < lowReadRate {
		rec := Recommendation{
			Kind:                RecommendTiming,
			Reason:              fmt.Sprintf("read rate %.0f%% is below %.0f%%", m.ReadRate*100, lowReadRate*100),
			ExpectedImprovement: 0.15,
			Actions: []string{
				"shift sends toward the user's higher-scoring hours",
				"avoid sending right before or inside the quiet-hours window",
			},
		}
		if len(m.OptimalHours) > 0 {
			rec.Actions = append(rec.Actions,
				fmt.Sprintf("prefer hours %v where past engagement is strongest", m.OptimalHours))
		}
		recs = append(recs, rec)
	}

	if m.DeliveryRate < lowDeliveryRate {
		recs = append(recs, Recommendation{
			Kind:                RecommendChannel,
			Reason:              fmt.Sprintf("delivery rate %.0f%% is below %.0f%%", m.DeliveryRate*100, lowDeliveryRate*100),
			ExpectedImprovement: 0.2,
			Actions: []string{
				"reorder the preferred-channel list toward channels that deliver reliably",
				"verify the user's addresses for failing channels",
			},
		})
	}

	if m.Trend == TrendDecreasing {
		recs = append(recs, Recommendation{
			Kind:                RecommendFrequency,
			Reason:              "engagement is trending down across the window",
			ExpectedImprovement: 0.1,
			Actions: []string{
				"lower daily caps for low-priority types",
				"batch reminders into a digest instead of individual sends",
			},
		})
	}

	if m.ClickRate < lowClickRate {
		recs = append(recs, Recommendation{
			Kind:                RecommendContent,
			Reason:              fmt.Sprintf("click rate %.0f%% is below %.0f%%", m.ClickRate*100, lowClickRate*100),
			ExpectedImprovement: 0.05,
			Actions: []string{
				"shorten titles and lead with the call to action",
				"personalize content using the schedule's template metadata",
			},
		})
	}

	return recs
}
