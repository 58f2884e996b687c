package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RunLogPattern matches the per-run log files written by NewFromConfig.
const RunLogPattern = "bootstick-*.log"

// PruneResult contains the outcome of a log retention pass.
type PruneResult struct {
	Removed []string
	Errors  []PruneError
}

// PruneError pairs a file path with its removal error.
type PruneError struct {
	Path  string
	Error error
}

// PruneRunLogs removes run logs in dir older than maxAge. Other files are
// left alone. A missing directory or non-positive maxAge is a no-op.
func PruneRunLogs(dir string, maxAge time.Duration, logger *slog.Logger) PruneResult {
	result := PruneResult{}

	dir = strings.TrimSpace(dir)
	if dir == "" || maxAge <= 0 {
		return result
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, PruneError{Path: dir, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if ok, _ := filepath.Match(RunLogPattern, entry.Name()); !ok {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, PruneError{Path: path, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.Remove(path); err != nil {
			result.Errors = append(result.Errors, PruneError{Path: path, Error: err})
			WarnWithContext(logger, "failed to remove old run log", "log_prune_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check logging.dir permissions"),
				String(FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, path)
		if logger != nil {
			logger.Debug("removed old run log",
				String("path", path),
				Duration("age", time.Since(info.ModTime()).Round(time.Hour)),
				String(FieldEventType, "log_prune"),
			)
		}
	}

	return result
}
