// Package prefs stores per-user notification preferences: which types a user
// accepts, the quiet-hours window, per-type channel ordering, daily and
// weekly frequency caps, recipient addresses per channel, and the timezone
// every hour-based rule is evaluated in.
//
// Preferences are created with defaults the first time a user is seen and
// superseded by partial updates afterwards. All mutations validate the full
// resulting record before it replaces the stored one.
package prefs
