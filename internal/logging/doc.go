// Package logging assembles structured slog loggers and formatting helpers used
// across newscast.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so wizard and generation code
// automatically tag log lines with production IDs, steps, and segment
// positions. The package also provides a no-op logger for tests and wiring
// code that cannot fail.
package logging
