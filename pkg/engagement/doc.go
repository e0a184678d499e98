// Package engagement turns raw delivery history into per-user metrics the
// scheduler and the upward layer act on: delivery, read, and click rates
// over a rolling window, the hours where past sends scored best, a trend
// label, and concrete optimization recommendations when a rate falls short.
//
// Metrics are a derived cache. They are recomputed on demand, or in the
// background by Refresher, and can always be rebuilt from the tracker store.
package engagement
