package preflight

import (
	"context"
	"runtime"

	"bootstick/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// goos is the platform the checks evaluate. Tests override it.
var goos = runtime.GOOS

// RunAll executes all preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{CheckPlatform()}
	for _, status := range CheckSystemDeps(ctx, cfg) {
		results = append(results, FromStatus(status))
	}
	results = append(results,
		CheckReadableDirectory("Image directory", cfg.Image.Dir, true),
		CheckDirectoryAccess("Lock directory", cfg.Run.LockDir),
	)
	if cfg.Logging.Dir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Logging.Dir))
	}
	return results
}

// FirstFailure returns the first failed required check.
func FirstFailure(results []Result) (Result, bool) {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return r, true
		}
	}
	return Result{}, false
}
