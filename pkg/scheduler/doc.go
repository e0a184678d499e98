// Package scheduler orchestrates notification delivery: it validates a
// request against the user's preferences, enforces daily and weekly
// frequency caps, picks a channel, optimizes the delivery time around quiet
// hours and historically strong engagement hours, and dispatches through the
// messaging gateway with a single failover attempt over a fixed fallback
// table.
//
// All decisions about one user run under that user's lock, so concurrent
// scheduling cannot overshoot a frequency cap. Work for different users
// proceeds in parallel.
package scheduler
