package notification

import "time"

// Recency bonus thresholds for reads after send.
const (
	fastReadWindow = 5 * time.Minute
	slowReadWindow = time.Hour
)

// EngagementScore computes a bounded [0,1] score for the delivery:
// 0.3 for reaching the user at all, 0.4 for a read plus a recency bonus
// (0.2 within five minutes of send, 0.1 within an hour), 0.3 for a click.
// Both occurrence and speed of engagement are rewarded.
func EngagementScore(d *Delivery) float64 {
	if d.Status == StatusFailed {
		return 0
	}

	score := 0.3

	if d.ReadAt != nil {
		score += 0.4
		if d.SentAt != nil {
			switch lag := d.ReadAt.Sub(*d.SentAt); {
			case lag <= fastReadWindow:
				score += 0.2
			case lag <= slowReadWindow:
				score += 0.1
			}
		}
	}

	if d.ClickedAt != nil {
		score += 0.3
	}

	if score > 1 {
		score = 1
	}
	return score
}
