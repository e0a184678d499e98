// Package notification holds the shared domain model for the delivery engine:
// notification types, priorities, logical channels, the pending Schedule, the
// Delivery lifecycle with its forward-only status machine, and the engagement
// score formula.
//
// The package is dependency-free on purpose so that providers, stores, and the
// scheduler can all share it without import cycles.
package notification
