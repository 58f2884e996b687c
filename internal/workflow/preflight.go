package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"bootstick/internal/fault"
	"bootstick/internal/logging"
	"bootstick/internal/preflight"
)

// runPreflightChecks validates the environment before a run touches any
// device. Optional checks only warn.
func (c *Controller) runPreflightChecks(ctx context.Context, logger *slog.Logger) error {
	results := preflight.RunAll(ctx, c.cfg)

	var failures []string
	for _, r := range results {
		switch {
		case r.Passed:
			logger.Debug("preflight check passed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
				logging.String(logging.FieldEventType, "preflight_passed"),
			)
		case r.Optional:
			logging.WarnWithContext(logger, "optional preflight check failed", "preflight_optional_failed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
			)
		default:
			failures = append(failures, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
	}

	if len(failures) > 0 {
		return fault.Tool(fmt.Sprintf("preflight checks failed: %s", strings.Join(failures, "; ")), nil)
	}
	return nil
}
