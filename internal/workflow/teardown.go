package workflow

import (
	"context"
	"log/slog"

	"bootstick/internal/diskutil"
	"bootstick/internal/imagemount"
	"bootstick/internal/logging"
)

// teardown flushes writes, detaches the image and ejects the device. Every
// step is best effort.
func (c *Controller) teardown(ctx context.Context, runLogger *slog.Logger, mount imagemount.Result, dev diskutil.DeviceInfo) {
	logger := logging.WithContext(logging.WithStage(ctx, "teardown"), runLogger)

	if c.Sync != nil {
		c.Sync()
	}
	c.detach(ctx, runLogger, mount)
	if err := c.devices.Eject(ctx, dev.Identifier); err != nil {
		logging.WarnWithContext(logger, "eject failed", "device_eject_failed",
			logging.String("device", dev.Identifier),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "eject the device from Finder before unplugging it"),
			logging.String(logging.FieldImpact, "device contents are complete"),
		)
		return
	}
	logger.Info("device ejected", logging.String("device", dev.Identifier))
}

func (c *Controller) detach(ctx context.Context, runLogger *slog.Logger, mount imagemount.Result) {
	logger := logging.WithContext(logging.WithStage(ctx, "teardown"), runLogger)
	if err := c.mounter.Detach(ctx, mount); err != nil {
		logging.WarnWithContext(logger, "image detach failed", "image_detach_failed",
			logging.String("target", mount.DetachTarget()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "detach it manually with hdiutil detach"),
			logging.String(logging.FieldImpact, "image stays attached"),
		)
	}
}
