package workflow

import (
	"context"
	"log/slog"
	"time"

	"bootstick/internal/fault"
	"bootstick/internal/logging"
)

// runStage runs fn with a stage-scoped context and logger, logging failures
// with their error kind and a hint for the operator.
func (c *Controller) runStage(ctx context.Context, runLogger *slog.Logger, name string, fn func(context.Context, *slog.Logger) error) error {
	if err := ctx.Err(); err != nil {
		return fault.Interrupted(err)
	}
	stageCtx := logging.WithStage(ctx, name)
	logger := logging.WithContext(stageCtx, runLogger)
	start := time.Now()
	logger.Debug("stage started", logging.String(logging.FieldEventType, "stage_start"))

	if err := fn(stageCtx, logger); err != nil {
		kind := fault.KindOf(err)
		logging.ErrorWithContext(logger, "stage failed", "stage_failure",
			logging.String("error_kind", string(kind)),
			logging.String(logging.FieldErrorHint, hintFor(kind)),
			logging.Duration("duration", time.Since(start)),
			logging.Error(err),
		)
		return err
	}
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("duration", time.Since(start).Round(time.Millisecond)),
	)
	return nil
}

func hintFor(kind fault.Kind) string {
	switch kind {
	case fault.KindInput:
		return "check the image path, device identifier and menu answer"
	case fault.KindSafety:
		return "pick a whole external USB device"
	case fault.KindContent:
		return "use an official Windows installation image"
	case fault.KindInterrupted:
		return "rerun to start over; the device may hold a partial copy"
	default:
		return "see the tool output above and retry"
	}
}
