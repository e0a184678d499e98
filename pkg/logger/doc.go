// Package logger provides a slog factory and typed attribute helpers so the
// engine's packages log the same field names for the same concepts.
package logger
