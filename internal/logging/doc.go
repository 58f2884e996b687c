// Package logging assembles structured slog loggers and formatting helpers used
// across bootstick.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes helpers so workflow stages tag log lines with the run ID, the
// stage name and the component that emitted them. The package also provides a
// no-op logger for tests and wiring code that cannot fail.
//
// Console output is written to stderr so interactive prompts on the
// controlling terminal and any captured stdout stay uncluttered. When a log
// directory is configured every record is also appended to a JSON log file.
package logging
