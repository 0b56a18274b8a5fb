// Package logging assembles structured slog loggers and formatting helpers used
// across the geotimeline pipeline.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so stage code can tag log lines
// with the run identifier and pipeline stage. The package also provides a
// no-op logger for tests and wiring code that cannot fail.
//
// Console output goes to stderr because stdout carries analysis results.
package logging
