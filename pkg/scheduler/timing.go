package scheduler

import (
	"time"

	"github.com/pingline/pingline/pkg/prefs"
)

// maxNudge bounds how far the optimal-hour nudge may move a delivery from
// the hour the caller asked for.
const maxNudge = 6

// shiftQuietHours moves a candidate time out of the user's quiet window. The
// result is the first hour after the window's end, on the same day when that
// is still ahead of the candidate and on the next day otherwise. The shift
// never moves backward and never lands inside the window.
func shiftQuietHours(candidate time.Time, window *prefs.QuietHours) time.Time {
	if window == nil || !window.Contains(candidate.Hour()) {
		return candidate
	}

	exit := (window.End + 1) % 24
	if window.Contains(exit) {
		// Degenerate window covering every hour; nothing is outside it.
		return candidate
	}

	shifted := time.Date(candidate.Year(), candidate.Month(), candidate.Day(),
		exit, 0, 0, 0, candidate.Location())
	if !shifted.After(candidate) {
		shifted = shifted.AddDate(0, 0, 1)
	}
	return shifted
}

// nudgeOptimal snaps the candidate to the nearest of the user's optimal send
// hours, when one lies within maxNudge hours. Hours inside the quiet window
// are never candidates, and a snap that would land in the past is pushed to
// the next day.
func nudgeOptimal(candidate time.Time, optimal []int, window *prefs.QuietHours, now time.Time) time.Time {
	best, ok := nearestHour(candidate.Hour(), optimal, window)
	if !ok {
		return candidate
	}

	nudged := time.Date(candidate.Year(), candidate.Month(), candidate.Day(),
		best, candidate.Minute(), candidate.Second(), 0, candidate.Location())
	if nudged.Before(now) {
		nudged = nudged.AddDate(0, 0, 1)
	}
	return nudged
}

// nearestHour picks the optimal hour closest to from by circular distance,
// skipping quiet hours. It reports false when from is already optimal or no
// hour is within reach.
func nearestHour(from int, optimal []int, window *prefs.QuietHours) (int, bool) {
	best, bestDist := 0, maxNudge+1
	for _, h := range optimal {
		if window != nil && window.Contains(h) {
			continue
		}
		if h == from {
			return 0, false
		}
		if d := circularDist(from, h); d < bestDist {
			best, bestDist = h, d
		}
	}
	return best, bestDist <= maxNudge
}

func circularDist(a, b int) int {
	d := (a - b + 24) % 24
	if d > 12 {
		d = 24 - d
	}
	return d
}
